// Package mock provides a mock acoustic model for running without a sidecar
// or cloud credentials. It returns canned phrases per language, cycling
// through them, and spreads word timings evenly over the waveform.
package mock

import (
	"context"
	"math"
	"strings"
	"sync"

	"indic-speech-stream-service/internal/service/alignment"
	"indic-speech-stream-service/internal/service/stt"
)

// DefaultPhrases provides sample output per language.
var DefaultPhrases = map[string][]string{
	"hi": {
		"नमस्ते आप कैसे हैं",
		"मुझे मदद चाहिए",
		"धन्यवाद",
	},
	"ne": {
		"नमस्कार तपाईंलाई कस्तो छ",
		"म ठीक छु",
	},
	"mai": {
		"प्रणाम अहाँ केहन छी",
		"हम ठीक छी",
	},
}

// silenceRMS is the level below which a window is treated as silent.
const silenceRMS = 0.005

// Adapter implements stt.Model with canned responses.
type Adapter struct {
	SampleRate int

	mu   sync.Mutex
	next map[string]int
}

// New creates a mock acoustic model.
func New(sampleRate int) *Adapter {
	return &Adapter{
		SampleRate: sampleRate,
		next:       make(map[string]int),
	}
}

// Infer returns the next canned phrase for language, or "" for silence.
func (a *Adapter) Infer(ctx context.Context, waveform []float32, language string, wantWords bool) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}
	phrases := DefaultPhrases[language]
	if len(phrases) == 0 || rms(waveform) < silenceRMS {
		return stt.Result{}, nil
	}

	a.mu.Lock()
	text := phrases[a.next[language]%len(phrases)]
	a.next[language]++
	a.mu.Unlock()

	res := stt.Result{Text: text}
	if wantWords && a.SampleRate > 0 {
		res.Words = spread(strings.Fields(text), float64(len(waveform))/float64(a.SampleRate))
	}
	return res, nil
}

// spread gives each token an equal slot of duration seconds.
func spread(tokens []string, duration float64) []alignment.Word {
	if len(tokens) == 0 {
		return nil
	}
	slot := duration / float64(len(tokens))
	words := make([]alignment.Word, len(tokens))
	for i, tok := range tokens {
		words[i] = alignment.Word{
			Text:  tok,
			Start: float64(i) * slot,
			End:   float64(i+1) * slot,
		}
	}
	return words
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
