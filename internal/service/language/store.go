// Package language holds the process-wide transcription language shared by
// every session. Reads are lock-free; all writes go through one goroutine so
// concurrent control messages apply in a single order (last writer wins).
package language

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"indic-speech-stream-service/internal/observability/metrics"
	"indic-speech-stream-service/internal/service/stt"
)

// Mirror persists the current language outside the process.
type Mirror interface {
	Save(ctx context.Context, lang string) error
}

type update struct {
	lang  string
	reply chan bool
}

// Store is the shared language cell.
type Store struct {
	current atomic.Pointer[string]
	updates chan update
	mirror  Mirror
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewStore creates a store holding initial, which must be supported.
func NewStore(initial string, logger zerolog.Logger) (*Store, error) {
	if !stt.IsSupported(initial) {
		return nil, fmt.Errorf("%w: %q", stt.ErrUnsupportedLanguage, initial)
	}
	s := &Store{
		updates: make(chan update),
		logger:  logger,
		metrics: metrics.DefaultMetrics,
	}
	s.current.Store(&initial)
	return s, nil
}

// SetMirror attaches a mirror. Must be called before Run.
func (s *Store) SetMirror(m Mirror) {
	s.mirror = m
}

// Current returns the active language code.
func (s *Store) Current() string {
	return *s.current.Load()
}

// Run applies updates until ctx is done. Exactly one Run must be active for
// Set to make progress.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-s.updates:
			u.reply <- s.apply(ctx, u.lang)
		}
	}
}

func (s *Store) apply(ctx context.Context, lang string) bool {
	prev := s.Current()
	if prev == lang {
		return false
	}
	s.current.Store(&lang)
	s.metrics.RecordLanguageChange(lang)
	s.logger.Info().
		Str("from", prev).
		Str("to", lang).
		Msg("Language changed")

	if s.mirror != nil {
		if err := s.mirror.Save(ctx, lang); err != nil {
			s.logger.Warn().Err(err).Str("language", lang).Msg("Failed to mirror language")
		}
	}
	return true
}

// Set switches the shared language. It reports whether the value changed.
// Unsupported codes are rejected with stt.ErrUnsupportedLanguage.
func (s *Store) Set(ctx context.Context, lang string) (bool, error) {
	if !stt.IsSupported(lang) {
		return false, fmt.Errorf("%w: %q", stt.ErrUnsupportedLanguage, lang)
	}

	u := update{lang: lang, reply: make(chan bool, 1)}
	select {
	case s.updates <- u:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case changed := <-u.reply:
		return changed, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
