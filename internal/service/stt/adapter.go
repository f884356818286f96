// Package stt defines the speech-to-text model interface and the
// Transcriber that sessions call on every flushed window.
package stt

import (
	"context"
	"errors"
	"slices"

	"indic-speech-stream-service/internal/service/alignment"
)

var (
	// ErrUnsupportedLanguage is returned for language codes outside SupportedLanguages.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrModelNotLoaded is returned when no acoustic model is available.
	ErrModelNotLoaded = errors.New("ASR model not loaded")
)

// DefaultLanguage is the language a fresh process starts with.
const DefaultLanguage = "hi"

// SupportedLanguages lists the accepted language codes.
var SupportedLanguages = []string{"hi", "ne", "mai"}

// IsSupported reports whether lang is an accepted language code.
func IsSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, lang)
}

// Result is a transcription with optional word timings relative to the
// start of the waveform.
type Result struct {
	Text  string           `json:"text"`
	Words []alignment.Word `json:"words,omitempty"`
}

// Model is an acoustic model backend (sidecar, Google, mock).
type Model interface {
	// Infer transcribes a 16 kHz mono waveform. Word timings are only
	// requested when wantWords is true; backends may still omit them.
	Infer(ctx context.Context, waveform []float32, language string, wantWords bool) (Result, error)
}
