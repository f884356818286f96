package mock

import (
	"context"
	"errors"
	"testing"

	"indic-speech-stream-service/internal/service/diarization"
)

func constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestModel_Silence(t *testing.T) {
	turns, err := New().Infer(context.Background(), make([]float32, 16000), 16000, diarization.Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected no turns for silence, got %v", turns)
	}
}

func TestModel_TwoSpeakers(t *testing.T) {
	window := append(constant(8000, 0.05), constant(8000, 0.5)...)

	turns, err := New().Infer(context.Background(), window, 16000, diarization.Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d: %v", len(turns), turns)
	}
	if turns[0].Speaker != "SPEAKER_00" || turns[0].Start != 0 || turns[0].End != 0.5 {
		t.Errorf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Speaker != "SPEAKER_01" || turns[1].Start != 0.5 || turns[1].End != 1.0 {
		t.Errorf("unexpected second turn: %+v", turns[1])
	}
}

func TestModel_Error(t *testing.T) {
	want := errors.New("boom")
	m := &Model{Err: want}
	if _, err := m.Infer(context.Background(), constant(1600, 0.5), 16000, diarization.Params{}); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}
