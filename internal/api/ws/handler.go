// Package ws serves the streaming transcription WebSocket endpoint.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"indic-speech-stream-service/internal/models"
	"indic-speech-stream-service/internal/observability/metrics"
	"indic-speech-stream-service/internal/service/audio"
	"indic-speech-stream-service/internal/service/hub"
	"indic-speech-stream-service/internal/service/stt"
)

// ModelUnavailableMessage is returned while the acoustic model is not loaded.
const ModelUnavailableMessage = "ASR Model invalid or not loaded."

// Config holds connection timing.
type Config struct {
	ReadTimeout  time.Duration // extended on every pong
	PingInterval time.Duration
	WriteTimeout time.Duration
	MaxFrameSize int64
}

// DefaultConfig returns connection defaults.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		WriteTimeout: 10 * time.Second,
		MaxFrameSize: 1 << 20,
	}
}

// Handler upgrades /transcribe/ws requests and runs one session per connection.
type Handler struct {
	pipeline *audio.Pipeline
	hub      *hub.Hub
	ready    func() bool
	cfg      Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewHandler creates the WebSocket handler. ready reports whether models
// finished loading.
func NewHandler(p *audio.Pipeline, h *hub.Hub, ready func() bool, cfg Config, logger zerolog.Logger) *Handler {
	return &Handler{
		pipeline: p,
		hub:      h,
		ready:    ready,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		metrics: metrics.DefaultMetrics,
	}
}

// wsConn serializes writes to one gorilla connection.
type wsConn struct {
	id           string
	c            *websocket.Conn
	mu           sync.Mutex
	writeTimeout time.Duration
}

func (w *wsConn) ID() string {
	return w.id
}

// Send implements hub.Conn.
func (w *wsConn) Send(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	return w.c.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.writeTimeout))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("language")
	if lang != "" && !stt.IsSupported(lang) {
		h.metrics.RecordConnectionRejected("unsupported_language")
		http.Error(w, "unsupported language: "+lang, http.StatusBadRequest)
		return
	}
	if !h.ready() || !h.pipeline.Transcriber.Loaded() {
		h.metrics.RecordConnectionRejected("model_not_loaded")
		http.Error(w, ModelUnavailableMessage, http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrade already wrote the response
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	wc := &wsConn{id: id, c: conn, writeTimeout: h.cfg.WriteTimeout}
	logger := h.logger.With().Str("session_id", id).Str("remote", r.RemoteAddr).Logger()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := h.pipeline.NewSession(id, wc)
	h.hub.Register(wc)
	h.metrics.RecordConnectionStart()
	logger.Info().Msg("Client connected")
	defer func() {
		h.hub.Unregister(wc)
		session.Close()
		logger.Info().Msg("Client disconnected")
	}()

	// Every client gets a config frame on connect. A query language is
	// broadcast by ApplyLanguage; if it cannot be applied the client still
	// learns the current one.
	sendCurrent := lang == ""
	if lang != "" {
		if err := session.ApplyLanguage(ctx, lang); err != nil {
			logger.Warn().Err(err).Str("language", lang).Msg("Failed to apply language from query")
			sendCurrent = true
		}
	}
	if sendCurrent {
		if err := h.hub.Send(wc, models.NewConfigMessage(h.pipeline.Language.Current())); err != nil {
			logger.Warn().Err(err).Msg("Failed to send initial config")
			return
		}
	}

	go h.keepAlive(ctx, wc, logger)
	h.readLoop(ctx, conn, session, logger)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, session *audio.Session, logger zerolog.Logger) {
	if h.cfg.MaxFrameSize > 0 {
		conn.SetReadLimit(h.cfg.MaxFrameSize)
	}
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		switch msgType {
		case websocket.BinaryMessage:
			if err := session.HandleAudio(ctx, data); err != nil {
				logger.Warn().Err(err).Msg("Audio rejected")
				return
			}
		case websocket.TextMessage:
			session.HandleControl(ctx, data)
		}
	}
}

func (h *Handler) keepAlive(ctx context.Context, wc *wsConn, logger zerolog.Logger) {
	if h.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				logger.Debug().Err(err).Msg("Ping failed")
				return
			}
		}
	}
}
