package diarization

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"indic-speech-stream-service/internal/observability/metrics"
	"indic-speech-stream-service/internal/service/inference"
)

// State is the lifecycle state of a sliding window.
type State int

const (
	// StateUninitialized - no audio has been processed yet.
	StateUninitialized State = iota
	// StateActive - window allocated and clock advancing.
	StateActive
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateActive:
		return "ACTIVE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Config holds sliding window parameters.
type Config struct {
	WindowSeconds float64 // rolling context length
	SampleRate    int
	MinSegment    float64 // seconds; shorter cropped segments are ignored
	Params        Params
}

// DefaultConfig returns the streaming defaults.
func DefaultConfig() Config {
	return Config{
		WindowSeconds: 5.0,
		SampleRate:    16000,
		MinSegment:    0.05,
	}
}

// Result is the outcome of one Process call.
//
// Label is nil when inference failed; callers treat that as "no change".
// Turns are the cropped turns that survived filtering, with times relative
// to the first sample of the processed chunk.
type Result struct {
	Label *string
	Turns []Turn
}

// SlidingWindow diarizes a stream incrementally. The model always sees the
// full window so earlier audio gives context to the new samples, but only
// the newly arrived tail is reported. Each call therefore costs O(window).
//
// Not safe for concurrent use; a session owns its window.
type SlidingWindow struct {
	model    Model
	executor *inference.Executor
	cfg      Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	state     State
	window    []float32
	capacity  int
	clock     float64
	lastLabel string
	hasLast   bool
}

// NewSlidingWindow creates a diarizer in the UNINITIALIZED state.
// executor may be nil, in which case the model is called directly.
func NewSlidingWindow(model Model, executor *inference.Executor, cfg Config, logger zerolog.Logger) *SlidingWindow {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = def.WindowSeconds
	}
	if cfg.MinSegment < 0 {
		cfg.MinSegment = def.MinSegment
	}

	return &SlidingWindow{
		model:    model,
		executor: executor,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.DefaultMetrics,
		capacity: int(math.Round(cfg.WindowSeconds * float64(cfg.SampleRate))),
	}
}

// State returns the current lifecycle state.
func (w *SlidingWindow) State() State {
	return w.state
}

// Clock returns the time in seconds of the window's right edge.
func (w *SlidingWindow) Clock() float64 {
	return w.clock
}

// Capacity returns the window size in samples.
func (w *SlidingWindow) Capacity() int {
	return w.capacity
}

// Window returns a copy of the current window contents.
func (w *SlidingWindow) Window() []float32 {
	out := make([]float32, len(w.window))
	copy(out, w.window)
	return out
}

// LastLabel returns the last confident speaker label, if any.
func (w *SlidingWindow) LastLabel() (string, bool) {
	return w.lastLabel, w.hasLast
}

// Process pushes a chunk into the window, re-runs the model and returns the
// dominant speaker of the newly arrived interval.
func (w *SlidingWindow) Process(ctx context.Context, chunk []float32) Result {
	if w.state == StateUninitialized {
		w.window = make([]float32, w.capacity)
		w.state = StateActive
	}
	n := len(chunk)
	if n == 0 {
		return Result{}
	}

	w.push(chunk)
	w.clock += float64(n) / float64(w.cfg.SampleRate)

	turns, err := w.infer(ctx)
	if err != nil {
		w.logger.Error().
			Err(err).
			Float64("clock", w.clock).
			Msg("Diarization failed for window")
		return Result{}
	}

	sr := float64(w.cfg.SampleRate)
	windowDur := float64(w.capacity) / sr
	fresh := n
	if fresh > w.capacity {
		fresh = w.capacity
	}
	lo := windowDur - float64(fresh)/sr
	// Samples of the chunk that did not fit in the window.
	skipped := float64(n-fresh) / sr

	cropped := w.crop(turns, lo, windowDur, skipped)
	if len(cropped) == 0 {
		label := SentinelLabel
		if w.hasLast {
			label = w.lastLabel
		}
		w.metrics.RecordDiarizationFallback(fallbackKind(w.hasLast))
		return Result{Label: &label}
	}

	label := dominant(cropped)
	w.lastLabel = label
	w.hasLast = true
	return Result{Label: &label, Turns: cropped}
}

// push shifts the window left by len(chunk) and appends chunk at the tail.
// A chunk at least as long as the window replaces it with its last samples.
func (w *SlidingWindow) push(chunk []float32) {
	n := len(chunk)
	if n >= w.capacity {
		copy(w.window, chunk[n-w.capacity:])
		return
	}
	copy(w.window, w.window[n:])
	copy(w.window[w.capacity-n:], chunk)
}

func (w *SlidingWindow) infer(ctx context.Context) ([]Turn, error) {
	var turns []Turn
	call := func(ctx context.Context) error {
		start := time.Now()
		var err error
		turns, err = w.model.Infer(ctx, w.window, w.cfg.SampleRate, w.cfg.Params)
		w.metrics.RecordDiarization(time.Since(start).Seconds(), err)
		return err
	}

	var err error
	if w.executor != nil {
		err = w.executor.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	return turns, err
}

// crop intersects turns with [lo, hi] (window-relative), drops pieces no
// longer than MinSegment and rebases them on the chunk start.
func (w *SlidingWindow) crop(turns []Turn, lo, hi, skipped float64) []Turn {
	var out []Turn
	for _, t := range turns {
		c := Turn{Speaker: t.Speaker, Start: math.Max(t.Start, lo), End: math.Min(t.End, hi)}
		if c.Duration() <= w.cfg.MinSegment {
			continue
		}
		out = append(out, Turn{
			Speaker: NormalizeLabel(c.Speaker),
			Start:   c.Start - lo + skipped,
			End:     c.End - lo + skipped,
		})
	}
	return out
}

// dominant returns the most frequent speaker; ties go to the first seen.
func dominant(turns []Turn) string {
	counts := make(map[string]int, len(turns))
	var order []string
	for _, t := range turns {
		if counts[t.Speaker] == 0 {
			order = append(order, t.Speaker)
		}
		counts[t.Speaker]++
	}

	best := order[0]
	for _, label := range order[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best
}

func fallbackKind(hasLast bool) string {
	if hasLast {
		return "last_known"
	}
	return "sentinel"
}
