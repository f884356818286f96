package stt

import (
	"context"
	"errors"
	"testing"

	"indic-speech-stream-service/internal/service/alignment"
	"indic-speech-stream-service/internal/service/inference"
)

type fakeModel struct {
	result    Result
	err       error
	calls     int
	language  string
	wantWords bool
}

func (m *fakeModel) Infer(ctx context.Context, waveform []float32, language string, wantWords bool) (Result, error) {
	m.calls++
	m.language = language
	m.wantWords = wantWords
	return m.result, m.err
}

func TestTranscriber_Transcribe(t *testing.T) {
	model := &fakeModel{result: Result{Text: "  नमस्ते  "}}
	tr := NewTranscriber(model, inference.NewExecutor(inference.PolicyInline, 0), "fake")

	text, err := tr.Transcribe(context.Background(), make([]float32, 10), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "नमस्ते" {
		t.Errorf("expected trimmed text, got %q", text)
	}
	if model.wantWords {
		t.Error("Transcribe must not request word timings")
	}
}

func TestTranscriber_TranscribeWords(t *testing.T) {
	words := []alignment.Word{{Text: "one", Start: 0.1, End: 0.5}}
	model := &fakeModel{result: Result{Text: "one", Words: words}}
	tr := NewTranscriber(model, nil, "fake")

	res, err := tr.TranscribeWords(context.Background(), make([]float32, 10), "mai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !model.wantWords || model.language != "mai" {
		t.Errorf("expected word request for mai, got words=%v lang=%s", model.wantWords, model.language)
	}
	if len(res.Words) != 1 || res.Words[0] != words[0] {
		t.Errorf("unexpected words %+v", res.Words)
	}
}

func TestTranscriber_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		model     Model
		language  string
		wantErr   error
		wantCalls int
	}{
		{"unsupported language", &fakeModel{}, "en", ErrUnsupportedLanguage, 0},
		{"empty language", &fakeModel{}, "", ErrUnsupportedLanguage, 0},
		{"model not loaded", nil, "hi", ErrModelNotLoaded, 0},
		{"model error propagates", &fakeModel{err: boom}, "ne", boom, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranscriber(tt.model, nil, "fake")
			_, err := tr.Transcribe(context.Background(), nil, tt.language)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if fm, ok := tt.model.(*fakeModel); ok && fm.calls != tt.wantCalls {
				t.Errorf("expected %d model calls, got %d", tt.wantCalls, fm.calls)
			}
		})
	}
}

func TestTranscriber_EmptyOutput(t *testing.T) {
	tr := NewTranscriber(&fakeModel{}, nil, "fake")
	text, err := tr.Transcribe(context.Background(), make([]float32, 10), "hi")
	if err != nil || text != "" {
		t.Errorf("expected empty text and nil error, got %q, %v", text, err)
	}
}

func TestIsSupported(t *testing.T) {
	for _, lang := range []string{"hi", "ne", "mai"} {
		if !IsSupported(lang) {
			t.Errorf("expected %s to be supported", lang)
		}
	}
	for _, lang := range []string{"", "en", "HI", "bn"} {
		if IsSupported(lang) {
			t.Errorf("expected %q to be unsupported", lang)
		}
	}
}
