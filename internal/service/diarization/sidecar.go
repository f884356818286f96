package diarization

import (
	"context"
	"fmt"
	"strconv"

	"indic-speech-stream-service/internal/service/inference"
)

// DefaultModelID is the pipeline loaded by the sidecar unless configured otherwise.
const DefaultModelID = "pyannote/speaker-diarization-community-1"

// SidecarModel runs diarization on the inference sidecar.
type SidecarModel struct {
	client *inference.Client
}

// NewSidecarModel creates a diarization model backed by the sidecar.
func NewSidecarModel(client *inference.Client) *SidecarModel {
	return &SidecarModel{client: client}
}

// Load asks the sidecar to load the diarization pipeline.
func (m *SidecarModel) Load(ctx context.Context, opts inference.LoadOptions) error {
	opts.Kind = "diarization"
	if opts.ModelID == "" {
		opts.ModelID = DefaultModelID
	}
	if err := m.client.Load(ctx, opts); err != nil {
		return fmt.Errorf("load diarization model %s: %w", opts.ModelID, err)
	}
	return nil
}

type inferResponse struct {
	Turns []Turn `json:"turns"`
}

// Infer implements Model.
func (m *SidecarModel) Infer(ctx context.Context, window []float32, sampleRate int, params Params) ([]Turn, error) {
	q := params.Query()
	q.Set("sample_rate", strconv.Itoa(sampleRate))

	var resp inferResponse
	if err := m.client.PostSamples(ctx, "/v1/diarization/infer", q, window, &resp); err != nil {
		return nil, fmt.Errorf("diarization inference: %w", err)
	}
	return resp.Turns, nil
}
