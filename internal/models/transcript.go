// Package models defines the WebSocket frames and stream events the service emits.
package models

import "indic-speech-stream-service/internal/service/alignment"

// Frame types.
const (
	TypeConfig        = "config"
	TypeTranscription = "transcription"
	TypeSpeaker       = "speaker"
	TypeError         = "error"
)

// SourceStream marks results produced by the streaming pipeline.
const SourceStream = "stream"

// ConfigMessage announces the shared language. Sent on connect and after
// every change.
type ConfigMessage struct {
	Type     string `json:"type"`
	Language string `json:"language"`
}

// NewConfigMessage builds a config frame.
func NewConfigMessage(language string) ConfigMessage {
	return ConfigMessage{Type: TypeConfig, Language: language}
}

// TranscriptionMessage carries the text of one flushed window.
type TranscriptionMessage struct {
	Type     string                    `json:"type"`
	Text     string                    `json:"text"`
	Language string                    `json:"language"`
	Source   string                    `json:"source"`
	Speaker  string                    `json:"speaker,omitempty"`
	Segments []alignment.AnnotatedTurn `json:"segments,omitempty"`
}

// SpeakerMessage announces a change of the detected speaker.
type SpeakerMessage struct {
	Type    string `json:"type"`
	Speaker string `json:"speaker"`
	Source  string `json:"source"`
}

// NewSpeakerMessage builds a speaker frame.
func NewSpeakerMessage(speaker string) SpeakerMessage {
	return SpeakerMessage{Type: TypeSpeaker, Speaker: speaker, Source: SourceStream}
}

// ErrorMessage reports a per-window failure to the originating client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorMessage builds an error frame.
func NewErrorMessage(msg string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: msg}
}

// ControlMessage is an inbound text frame.
type ControlMessage struct {
	Type     string `json:"type"`
	Language string `json:"language"`
}
