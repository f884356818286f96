// Package schema validates inbound control frames and outbound events.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"indic-speech-stream-service/internal/models"
)

var (
	// ErrMalformed is returned for frames that are not a JSON object of the expected shape.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownType is returned for control frames with an unrecognized type.
	ErrUnknownType = errors.New("unknown message type")
	// ErrInvalidEvent is returned for outbound events missing required fields.
	ErrInvalidEvent = errors.New("invalid event")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ParseControl decodes a text frame. Only {"type":"config","language":...}
// is recognized.
func (v *Validator) ParseControl(data []byte) (models.ControlMessage, error) {
	var msg models.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.ControlMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type != models.TypeConfig {
		return msg, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	if msg.Language == "" {
		return msg, fmt.Errorf("%w: config without language", ErrMalformed)
	}
	return msg, nil
}

// Validate checks an outbound event before it is published.
func (v *Validator) Validate(event any) error {
	switch e := event.(type) {
	case models.TranscriptEvent:
		if e.EventType != models.EventTranscript || e.SessionID == "" || e.UtteranceID == "" {
			return fmt.Errorf("%w: transcript event needs type, session and utterance ids", ErrInvalidEvent)
		}
		if e.Language == "" {
			return fmt.Errorf("%w: transcript event without language", ErrInvalidEvent)
		}
	case models.LanguageEvent:
		if e.EventType != models.EventLanguageChange || e.Language == "" {
			return fmt.Errorf("%w: language event needs type and language", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unsupported event %T", ErrInvalidEvent, event)
	}
	return nil
}
