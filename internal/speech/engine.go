// Package speech adapts a streaming recognizer to per-frame recognition states.
package speech

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Engine is the streaming recognizer surface the decoder drives.
//
// AcceptWaveform returns 1 at an utterance endpoint, 0 while the utterance is
// still open, and a negative value when the engine rejects the audio.
type Engine interface {
	AcceptWaveform(pcm []byte) int
	Result() string
	PartialResult() string
	FinalResult() string
	Close()
}

type textResult struct {
	Text *string `json:"text"`
}

type partialResult struct {
	Partial *string `json:"partial"`
}

func parseText(raw string) (string, error) {
	var payload textResult
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("decode recognizer result: %w", err)
	}
	if payload.Text == nil {
		return "", fmt.Errorf("recognizer result has no text field")
	}
	return strings.TrimSpace(*payload.Text), nil
}

func parsePartial(raw string) (string, error) {
	var payload partialResult
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("decode recognizer partial: %w", err)
	}
	if payload.Partial == nil {
		return "", nil
	}
	return strings.TrimSpace(*payload.Partial), nil
}
