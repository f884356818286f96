// Package diarization tracks who is speaking in a live stream by running a
// diarization model over a rolling audio window.
package diarization

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
)

// SentinelLabel is reported until a first confident speaker is found.
const SentinelLabel = "Identifying..."

// Turn is a continuous single-speaker interval in seconds.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Duration returns the turn length in seconds.
func (t Turn) Duration() float64 {
	return t.End - t.Start
}

// Params constrain the number of speakers. Zero means unset.
// NumSpeakers takes precedence over MinSpeakers/MaxSpeakers.
type Params struct {
	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int
}

// Query encodes the parameters for the sidecar request.
func (p Params) Query() url.Values {
	q := url.Values{}
	if p.NumSpeakers > 0 {
		q.Set("num_speakers", strconv.Itoa(p.NumSpeakers))
		return q
	}
	if p.MinSpeakers > 0 {
		q.Set("min_speakers", strconv.Itoa(p.MinSpeakers))
	}
	if p.MaxSpeakers > 0 {
		q.Set("max_speakers", strconv.Itoa(p.MaxSpeakers))
	}
	return q
}

// Model runs speaker diarization over a mono waveform. Turn times are
// relative to the start of window. Implementations must not retain window.
type Model interface {
	Infer(ctx context.Context, window []float32, sampleRate int, params Params) ([]Turn, error)
}

var trackLabel = regexp.MustCompile(`(?i)^speaker[\s_-]*(\d+)$`)

// NormalizeLabel turns a model track id such as "speaker1" or "SPEAKER_01"
// into "Speaker 1". Other labels are returned unchanged.
func NormalizeLabel(raw string) string {
	m := trackLabel.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return raw
	}
	return "Speaker " + strconv.Itoa(n)
}
