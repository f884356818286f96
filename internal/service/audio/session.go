// Package audio turns a client's raw PCM stream into transcription, speaker
// and config frames. A Pipeline holds what all sessions share; a Session is
// the per-connection state (buffer, diarization window, last speaker).
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"indic-speech-stream-service/internal/models"
	"indic-speech-stream-service/internal/observability/metrics"
	"indic-speech-stream-service/internal/schema"
	"indic-speech-stream-service/internal/service/alignment"
	"indic-speech-stream-service/internal/service/diarization"
	"indic-speech-stream-service/internal/service/hub"
	"indic-speech-stream-service/internal/service/inference"
	"indic-speech-stream-service/internal/service/segment"
	"indic-speech-stream-service/internal/service/stt"
)

// Broadcaster delivers frames to clients. *hub.Hub satisfies it.
type Broadcaster interface {
	Broadcast(msgType string, msg any) error
	Send(conn hub.Conn, msg any) error
}

// EventSink records results outside the process. *events.Publisher satisfies it.
type EventSink interface {
	PublishTranscript(ctx context.Context, event models.TranscriptEvent) error
	PublishLanguage(ctx context.Context, event models.LanguageEvent) error
}

// LanguageStore is the shared language. *language.Store satisfies it.
type LanguageStore interface {
	Current() string
	Set(ctx context.Context, lang string) (bool, error)
}

// PipelineConfig holds per-session processing settings.
type PipelineConfig struct {
	ThresholdBytes int
	Diarization    diarization.Config
}

// Pipeline wires the shared collaborators used by every session.
type Pipeline struct {
	Transcriber *stt.Transcriber
	// Diarizer is nil when diarization is disabled or failed to load.
	Diarizer  diarization.Model
	Executor  *inference.Executor
	Language  LanguageStore
	Hub       Broadcaster
	Events    EventSink
	Validator *schema.Validator
	Config    PipelineConfig
	Logger    zerolog.Logger
}

// Session is the state of one streaming connection. HandleAudio and
// HandleControl must be called from the connection's read loop only.
type Session struct {
	id          string
	conn        hub.Conn
	p           *Pipeline
	buffer      *FrameBuffer
	window      *diarization.SlidingWindow
	lifecycle   *segment.Lifecycle
	utterances  *segment.Generator
	lastSpeaker string
	startTime   time.Time
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewSession creates the state for a new connection.
func (p *Pipeline) NewSession(id string, conn hub.Conn) *Session {
	logger := p.Logger.With().Str("session_id", id).Logger()

	s := &Session{
		id:         id,
		conn:       conn,
		p:          p,
		buffer:     NewFrameBuffer(p.Config.ThresholdBytes),
		lifecycle:  segment.NewLifecycle(id),
		utterances: segment.New(),
		startTime:  time.Now(),
		logger:     logger,
		metrics:    metrics.DefaultMetrics,
	}
	if p.Diarizer != nil {
		s.window = diarization.NewSlidingWindow(p.Diarizer, p.Executor, p.Config.Diarization, logger)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Lifecycle exposes the session state machine.
func (s *Session) Lifecycle() *segment.Lifecycle {
	return s.lifecycle
}

// LastSpeaker returns the last speaker broadcast by this session.
func (s *Session) LastSpeaker() string {
	return s.lastSpeaker
}

// Close marks the session closed. Results still in flight are discarded.
func (s *Session) Close() {
	if !s.lifecycle.Close() {
		return
	}
	admitted, emitted, discarded := s.lifecycle.Stats()
	s.metrics.RecordConnectionEnd(time.Since(s.startTime).Seconds())
	s.logger.Info().
		Int("windows", admitted).
		Int("emitted", emitted).
		Int("discarded", discarded).
		Int("buffered_bytes", s.buffer.Len()).
		Msg("Session closed")
}

// HandleAudio buffers a chunk and, once the threshold is reached, runs
// transcription and diarization on the flushed window. Inference failures
// are reported to this connection and do not end the session.
func (s *Session) HandleAudio(ctx context.Context, chunk []byte) error {
	if s.lifecycle.IsClosed() {
		return segment.ErrSessionClosed
	}
	s.metrics.RecordAudioReceived(len(chunk))

	s.buffer.Append(chunk)
	if !s.buffer.IsReady() {
		return nil
	}

	waveform := s.buffer.Flush()
	s.metrics.RecordWindowFlushed()
	if err := s.lifecycle.Admit(); err != nil {
		return err
	}
	s.processWindow(ctx, waveform)
	return nil
}

func (s *Session) processWindow(ctx context.Context, waveform []float32) {
	lang := s.p.Language.Current()
	uttID := s.utterances.Next(s.id)
	logger := s.logger.With().Str("utterance_id", uttID).Str("language", lang).Logger()

	var (
		g      errgroup.Group
		text   stt.Result
		sttErr error
		dres   diarization.Result
	)
	g.Go(func() error {
		if s.window != nil {
			text, sttErr = s.p.Transcriber.TranscribeWords(ctx, waveform, lang)
		} else {
			text.Text, sttErr = s.p.Transcriber.Transcribe(ctx, waveform, lang)
		}
		return nil
	})
	if s.window != nil {
		g.Go(func() error {
			dres = s.window.Process(ctx, waveform)
			return nil
		})
	}
	_ = g.Wait()

	if err := s.lifecycle.Emit(); err != nil {
		s.metrics.RecordDiscardedResult()
		logger.Debug().Msg("Discarding result for closed session")
		return
	}

	if dres.Label != nil && *dres.Label != s.lastSpeaker {
		s.lastSpeaker = *dres.Label
		if err := s.p.Hub.Broadcast(models.TypeSpeaker, models.NewSpeakerMessage(s.lastSpeaker)); err != nil {
			logger.Error().Err(err).Msg("Failed to broadcast speaker")
		}
	}

	if sttErr != nil {
		logger.Error().Err(sttErr).Msg("Transcription failed")
		if err := s.p.Hub.Send(s.conn, models.NewErrorMessage(errorText(sttErr))); err != nil {
			logger.Warn().Err(err).Msg("Failed to send error frame")
		}
		return
	}
	if text.Text == "" {
		logger.Debug().Msg("Empty transcription")
		return
	}

	msg := models.TranscriptionMessage{
		Type:     models.TypeTranscription,
		Text:     text.Text,
		Language: lang,
		Source:   models.SourceStream,
	}
	if dres.Label != nil {
		msg.Speaker = *dres.Label
	}
	if len(dres.Turns) > 0 && len(text.Words) > 0 {
		msg.Segments = alignment.Align(text.Words, dres.Turns, logger)
	}

	if err := s.p.Hub.Broadcast(models.TypeTranscription, msg); err != nil {
		logger.Error().Err(err).Msg("Failed to broadcast transcription")
	}
	logger.Info().
		Str("speaker", msg.Speaker).
		Int("chars", len(msg.Text)).
		Msg("Transcription broadcast")

	s.publishTranscript(ctx, uttID, msg)
}

func (s *Session) publishTranscript(ctx context.Context, uttID string, msg models.TranscriptionMessage) {
	if s.p.Events == nil {
		return
	}
	var offsetMs int64
	if s.window != nil {
		offsetMs = int64(s.window.Clock() * 1000)
	}
	ev := models.TranscriptEvent{
		EventType:     models.EventTranscript,
		SessionID:     s.id,
		UtteranceID:   uttID,
		Timestamp:     time.Now().UnixMilli(),
		Language:      msg.Language,
		Text:          msg.Text,
		Speaker:       msg.Speaker,
		Segments:      msg.Segments,
		AudioOffsetMs: offsetMs,
	}
	if err := s.p.Events.PublishTranscript(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("utterance_id", uttID).Msg("Failed to publish transcript event")
	}
}

// HandleControl applies a text frame. Malformed frames and unsupported
// languages are logged and ignored; unknown types are ignored.
func (s *Session) HandleControl(ctx context.Context, data []byte) {
	msg, err := s.p.Validator.ParseControl(data)
	switch {
	case errors.Is(err, schema.ErrUnknownType):
		s.metrics.RecordControlMessage("unknown_type")
		s.logger.Debug().Str("type", msg.Type).Msg("Ignoring control message")
		return
	case err != nil:
		s.metrics.RecordControlMessage("malformed")
		s.logger.Warn().Err(err).Msg("Ignoring malformed control message")
		return
	}

	if err := s.ApplyLanguage(ctx, msg.Language); err != nil {
		s.logger.Warn().Err(err).Str("language", msg.Language).Msg("Ignoring language change")
	}
}

// ApplyLanguage switches the shared language and echoes it to every client.
func (s *Session) ApplyLanguage(ctx context.Context, lang string) error {
	changed, err := s.p.Language.Set(ctx, lang)
	if err != nil {
		if errors.Is(err, stt.ErrUnsupportedLanguage) {
			s.metrics.RecordControlMessage("unsupported_language")
		}
		return err
	}
	s.metrics.RecordControlMessage("applied")

	current := s.p.Language.Current()
	if err := s.p.Hub.Broadcast(models.TypeConfig, models.NewConfigMessage(current)); err != nil {
		return fmt.Errorf("broadcast config: %w", err)
	}

	if changed && s.p.Events != nil {
		ev := models.LanguageEvent{
			EventType: models.EventLanguageChange,
			SessionID: s.id,
			Timestamp: time.Now().UnixMilli(),
			Language:  current,
		}
		if err := s.p.Events.PublishLanguage(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish language event")
		}
	}
	return nil
}

func errorText(err error) string {
	switch {
	case errors.Is(err, stt.ErrModelNotLoaded):
		return "ASR Model invalid or not loaded."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Transcription cancelled"
	default:
		return "Transcription failed: " + err.Error()
	}
}
