package speech

import (
	"encoding/json"
	"time"
)

// ScriptedEngine finalizes a fixed phrase list in rotation, one phrase per
// interval of audio. It stands in for a real recognizer in simulate mode.
type ScriptedEngine struct {
	phrases   []string
	framesPer int

	frames int
	next   int
	last   string
}

// NewScriptedEngine emits one phrase every interval, assuming each accepted
// frame spans frameDuration.
func NewScriptedEngine(phrases []string, interval, frameDuration time.Duration) *ScriptedEngine {
	framesPer := 1
	if frameDuration > 0 && interval > frameDuration {
		framesPer = int(interval / frameDuration)
	}
	return &ScriptedEngine{
		phrases:   append([]string(nil), phrases...),
		framesPer: framesPer,
	}
}

func (e *ScriptedEngine) AcceptWaveform([]byte) int {
	if len(e.phrases) == 0 {
		return 0
	}
	e.frames++
	if e.frames < e.framesPer {
		return 0
	}
	e.frames = 0
	e.last = e.phrases[e.next]
	e.next = (e.next + 1) % len(e.phrases)
	return 1
}

func (e *ScriptedEngine) Result() string {
	return encodeJSON(map[string]string{"text": e.last})
}

func (e *ScriptedEngine) PartialResult() string {
	return encodeJSON(map[string]string{"partial": ""})
}

func (e *ScriptedEngine) FinalResult() string {
	e.frames = 0
	return encodeJSON(map[string]string{"text": ""})
}

func (e *ScriptedEngine) Close() {}

func encodeJSON(v map[string]string) string {
	data, _ := json.Marshal(v)
	return string(data)
}
