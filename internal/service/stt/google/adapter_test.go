package google

import (
	"context"
	"errors"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"indic-speech-stream-service/internal/service/stt"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.LanguageTags["hi"] != "hi-IN" {
		t.Errorf("expected hi -> hi-IN, got %q", cfg.LanguageTags["hi"])
	}
	if cfg.LanguageTags["ne"] != "ne-NP" {
		t.Errorf("expected ne -> ne-NP, got %q", cfg.LanguageTags["ne"])
	}
	if _, ok := cfg.LanguageTags["mai"]; ok {
		t.Error("expected mai to have no Google tag")
	}
}

func newFakeAdapter(resp *speechpb.RecognizeResponse, err error, seen **speechpb.RecognizeRequest) *Adapter {
	return &Adapter{
		cfg: DefaultConfig(),
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			*seen = req
			return resp, err
		},
	}
}

func TestAdapter_Infer(t *testing.T) {
	resp := &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{
				Transcript: "नमस्ते ",
				Words: []*speechpb.WordInfo{{
					Word:      "नमस्ते",
					StartTime: durationpb.New(100 * time.Millisecond),
					EndTime:   durationpb.New(600 * time.Millisecond),
				}},
			}}},
			{},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "दुनिया"}}},
		},
	}
	var req *speechpb.RecognizeRequest
	a := newFakeAdapter(resp, nil, &req)

	res, err := a.Infer(context.Background(), []float32{0, 0.5, -0.5}, "hi", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "नमस्ते दुनिया" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if len(res.Words) != 1 || res.Words[0].Start != 0.1 || res.Words[0].End != 0.6 {
		t.Errorf("unexpected words %+v", res.Words)
	}

	if req.Config.LanguageCode != "hi-IN" {
		t.Errorf("expected hi-IN, got %s", req.Config.LanguageCode)
	}
	if !req.Config.EnableWordTimeOffsets {
		t.Error("expected word time offsets to be requested")
	}
	if req.Config.Encoding != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("expected LINEAR16, got %v", req.Config.Encoding)
	}
	if got := len(req.Audio.GetContent()); got != 6 {
		t.Errorf("expected 6 PCM bytes, got %d", got)
	}
}

func TestAdapter_UnmappedLanguage(t *testing.T) {
	var req *speechpb.RecognizeRequest
	a := newFakeAdapter(&speechpb.RecognizeResponse{}, nil, &req)

	_, err := a.Infer(context.Background(), []float32{0}, "mai", false)
	if !errors.Is(err, stt.ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if req != nil {
		t.Error("expected no request for an unmapped language")
	}
}

func TestAdapter_RecognizeError(t *testing.T) {
	var req *speechpb.RecognizeRequest
	want := errors.New("quota exceeded")
	a := newFakeAdapter(nil, want, &req)

	if _, err := a.Infer(context.Background(), []float32{0}, "ne", false); !errors.Is(err, want) {
		t.Errorf("expected wrapped %v, got %v", want, err)
	}
}
