package mock

import (
	"context"
	"testing"
)

func tone(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 0.3
		} else {
			out[i] = -0.3
		}
	}
	return out
}

func TestAdapter_Silence(t *testing.T) {
	res, err := New(16000).Infer(context.Background(), make([]float32, 16000), "hi", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "" || len(res.Words) != 0 {
		t.Errorf("expected empty result for silence, got %+v", res)
	}
}

func TestAdapter_CyclesPhrases(t *testing.T) {
	a := New(16000)
	phrases := DefaultPhrases["ne"]

	for i := 0; i < len(phrases)+1; i++ {
		res, err := a.Infer(context.Background(), tone(1600), "ne", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := phrases[i%len(phrases)]; res.Text != want {
			t.Errorf("call %d: expected %q, got %q", i, want, res.Text)
		}
		if res.Words != nil {
			t.Errorf("call %d: expected no words when not requested", i)
		}
	}
}

func TestAdapter_WordTimings(t *testing.T) {
	res, err := New(16000).Infer(context.Background(), tone(32000), "hi", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Words) != 4 {
		t.Fatalf("expected 4 words, got %d", len(res.Words))
	}
	if res.Words[0].Start != 0 || res.Words[3].End != 2.0 {
		t.Errorf("expected words to span [0, 2], got %+v", res.Words)
	}
	for i := 1; i < len(res.Words); i++ {
		if res.Words[i].Start != res.Words[i-1].End {
			t.Errorf("word %d does not follow word %d", i, i-1)
		}
	}
}

func TestAdapter_UnknownLanguage(t *testing.T) {
	res, err := New(16000).Infer(context.Background(), tone(1600), "en", true)
	if err != nil || res.Text != "" {
		t.Errorf("expected empty result, got %+v (%v)", res, err)
	}
}
