package models

import "indic-speech-stream-service/internal/service/alignment"

// Event types published to the event stream.
const (
	EventTranscript     = "transcript"
	EventLanguageChange = "language_changed"
)

// TranscriptEvent is the stream record of one transcription.
type TranscriptEvent struct {
	EventType   string                    `json:"eventType"`
	SessionID   string                    `json:"sessionId"`
	UtteranceID string                    `json:"utteranceId"`
	Timestamp   int64                     `json:"timestamp"`
	Language    string                    `json:"language"`
	Text        string                    `json:"text"`
	Speaker     string                    `json:"speaker,omitempty"`
	Segments    []alignment.AnnotatedTurn `json:"segments,omitempty"`
	// AudioOffsetMs is the session clock at the end of the window.
	AudioOffsetMs int64 `json:"audioOffsetMs"`
}

// LanguageEvent records a change of the shared language.
type LanguageEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Language  string `json:"language"`
}
