package stt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"indic-speech-stream-service/internal/observability/metrics"
	"indic-speech-stream-service/internal/service/inference"
)

// Transcriber validates requests and schedules them on the shared executor.
type Transcriber struct {
	model    Model
	executor *inference.Executor
	provider string
	metrics  *metrics.Metrics
}

// NewTranscriber wraps model. A nil model yields ErrModelNotLoaded on every
// call; a nil executor runs inference directly.
func NewTranscriber(model Model, executor *inference.Executor, provider string) *Transcriber {
	return &Transcriber{
		model:    model,
		executor: executor,
		provider: provider,
		metrics:  metrics.DefaultMetrics,
	}
}

// Loaded reports whether a model is available.
func (t *Transcriber) Loaded() bool {
	return t != nil && t.model != nil
}

// Provider returns the backend name used in metrics.
func (t *Transcriber) Provider() string {
	return t.provider
}

// Transcribe returns the text for waveform. Silence yields "".
func (t *Transcriber) Transcribe(ctx context.Context, waveform []float32, language string) (string, error) {
	res, err := t.run(ctx, waveform, language, false)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// TranscribeWords returns the text together with word timings when the
// backend provides them.
func (t *Transcriber) TranscribeWords(ctx context.Context, waveform []float32, language string) (Result, error) {
	return t.run(ctx, waveform, language, true)
}

func (t *Transcriber) run(ctx context.Context, waveform []float32, language string, wantWords bool) (Result, error) {
	if !t.Loaded() {
		return Result{}, ErrModelNotLoaded
	}
	if !IsSupported(language) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	var res Result
	call := func(ctx context.Context) error {
		start := time.Now()
		var err error
		res, err = t.model.Infer(ctx, waveform, language, wantWords)
		if err != nil {
			t.metrics.RecordSTTError(t.provider, "inference")
			return err
		}
		res.Text = strings.TrimSpace(res.Text)
		t.metrics.RecordSTT(t.provider, language, time.Since(start).Seconds(), res.Text == "")
		return nil
	}

	var err error
	if t.executor != nil {
		err = t.executor.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return Result{}, fmt.Errorf("transcribe %s: %w", language, err)
	}
	return res, nil
}
