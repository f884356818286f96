package app

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"indic-speech-stream-service/internal/config"
	"indic-speech-stream-service/internal/observability/logging"
	"indic-speech-stream-service/internal/service/stt"
)

// Info is the service description served on /info.
type Info struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Languages    []string `json:"languages"`
	WebSocketURL string   `json:"websocket_url"`
	Ready        bool     `json:"ready"`
}

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	ready atomic.Bool
}

// New constructs a new Application from the provided configuration and
// initializes the global logger.
func New(cfg *config.Configuration) *Application {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Observability.LogLevel
	lc.Format = cfg.Observability.LogFormat
	logging.Init(lc)

	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}

	a.Logger.Info().
		Str("logLevel", cfg.Observability.LogLevel).
		Str("environment", cfg.Service.Env).
		Msg("Indic speech stream application created")
	return a
}

// Start records the startup time.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Indic speech stream service starting")
	return nil
}

// SetReady marks whether the acoustic model is loaded and traffic can be served.
func (a *Application) SetReady(ready bool) {
	a.ready.Store(ready)
	a.Logger.Info().Bool("ready", ready).Msg("Readiness changed")
}

// Ready reports whether the service accepts streams.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Info describes the running service.
func (a *Application) Info() Info {
	return Info{
		ID:           a.Cfg.Service.Name,
		Name:         "Indic Streaming ASR with Speaker Diarization",
		Version:      a.Cfg.Service.Version,
		Languages:    append([]string(nil), stt.SupportedLanguages...),
		WebSocketURL: a.Cfg.Service.WebSocketURL,
		Ready:        a.Ready(),
	}
}

// Uptime returns the time since Start.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.ready.Store(false)
	a.Logger.Info().
		Dur("uptime", a.Uptime()).
		Msg("Indic speech stream service shutting down")
}
