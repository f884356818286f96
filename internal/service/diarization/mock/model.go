// Package mock provides a diarization model that needs no sidecar.
// It marks voiced regions by short-term energy and assigns them to one of two
// speakers by loudness, which is enough to exercise speaker changes locally.
package mock

import (
	"context"
	"math"

	"indic-speech-stream-service/internal/service/diarization"
)

const (
	frameSeconds   = 0.1
	silenceRMS     = 0.01
	loudSpeakerRMS = 0.1
)

// Model implements diarization.Model.
type Model struct {
	// Err, when set, is returned from every Infer call.
	Err error
}

// New creates a mock diarization model.
func New() *Model {
	return &Model{}
}

// Infer labels each voiced 100 ms frame and merges neighbours with the same label.
func (m *Model) Infer(ctx context.Context, window []float32, sampleRate int, _ diarization.Params) ([]diarization.Turn, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := int(frameSeconds * float64(sampleRate))
	if frame <= 0 {
		return nil, nil
	}

	var turns []diarization.Turn
	for off := 0; off < len(window); off += frame {
		end := off + frame
		if end > len(window) {
			end = len(window)
		}
		label := speakerFor(rms(window[off:end]))
		if label == "" {
			continue
		}

		start := float64(off) / float64(sampleRate)
		stop := float64(end) / float64(sampleRate)
		if n := len(turns); n > 0 && turns[n-1].Speaker == label && turns[n-1].End == start {
			turns[n-1].End = stop
			continue
		}
		turns = append(turns, diarization.Turn{Speaker: label, Start: start, End: stop})
	}
	return turns, nil
}

func speakerFor(level float64) string {
	switch {
	case level < silenceRMS:
		return ""
	case level < loudSpeakerRMS:
		return "SPEAKER_00"
	default:
		return "SPEAKER_01"
	}
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
