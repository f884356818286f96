// Package alignment attaches recognized words to diarized speaker turns.
package alignment

import (
	"math"
	"strings"

	"github.com/rs/zerolog"

	"indic-speech-stream-service/internal/service/diarization"
)

// Word is a recognized token with its time span in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Midpoint returns the centre of the word's span.
func (w Word) Midpoint() float64 {
	return (w.Start + w.End) / 2
}

// Malformed reports whether the word lacks a usable time span.
func (w Word) Malformed() bool {
	return math.IsNaN(w.Start) || math.IsNaN(w.End)
}

// AnnotatedTurn is a speaker turn with the words spoken inside it.
type AnnotatedTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Align assigns each word to every turn whose closed interval contains the
// word's midpoint. A word sitting exactly on a shared boundary lands in both
// turns. Output order follows turns; word order follows words.
func Align(words []Word, turns []diarization.Turn, logger zerolog.Logger) []AnnotatedTurn {
	if len(turns) == 0 {
		return []AnnotatedTurn{}
	}

	valid := make([]Word, 0, len(words))
	for _, w := range words {
		if w.Malformed() {
			logger.Warn().
				Str("word", w.Text).
				Msg("Dropping word without timestamps")
			continue
		}
		valid = append(valid, w)
	}

	out := make([]AnnotatedTurn, 0, len(turns))
	for _, t := range turns {
		var text []string
		for _, w := range valid {
			mid := w.Midpoint()
			if t.Start <= mid && mid <= t.End {
				text = append(text, w.Text)
			}
		}
		out = append(out, AnnotatedTurn{
			Speaker: t.Speaker,
			Start:   t.Start,
			End:     t.End,
			Text:    strings.Join(text, " "),
		})
	}
	return out
}
