// Package sidecar runs the multilingual acoustic model on the inference sidecar.
package sidecar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"indic-speech-stream-service/internal/service/inference"
	"indic-speech-stream-service/internal/service/stt"
)

// DefaultModelID is the acoustic model loaded unless configured otherwise.
const DefaultModelID = "ai4bharat/indic-conformer-600m-multilingual"

// Adapter implements stt.Model over the sidecar HTTP protocol.
type Adapter struct {
	client     *inference.Client
	sampleRate int
}

// New creates a sidecar-backed acoustic model.
func New(client *inference.Client, sampleRate int) *Adapter {
	return &Adapter{client: client, sampleRate: sampleRate}
}

// Load asks the sidecar to load the acoustic model.
func (a *Adapter) Load(ctx context.Context, opts inference.LoadOptions) error {
	opts.Kind = "asr"
	if opts.ModelID == "" {
		opts.ModelID = DefaultModelID
	}
	if err := a.client.Load(ctx, opts); err != nil {
		return fmt.Errorf("load ASR model %s: %w", opts.ModelID, err)
	}
	return nil
}

// Infer implements stt.Model.
func (a *Adapter) Infer(ctx context.Context, waveform []float32, language string, wantWords bool) (stt.Result, error) {
	q := url.Values{}
	q.Set("language", language)
	q.Set("sample_rate", strconv.Itoa(a.sampleRate))
	q.Set("timestamps", strconv.FormatBool(wantWords))

	var res stt.Result
	if err := a.client.PostSamples(ctx, "/v1/asr/infer", q, waveform, &res); err != nil {
		return stt.Result{}, fmt.Errorf("asr inference: %w", err)
	}
	return res, nil
}
