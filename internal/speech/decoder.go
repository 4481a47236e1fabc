package speech

import (
	"fmt"

	"github.com/rbright/saytap/internal/audio"
	"github.com/rbright/saytap/internal/fsm"
)

// Decoder turns frames into recognition states. It does no logging; callers
// decide what to report.
type Decoder struct {
	engine    Engine
	utterance fsm.Utterance
	pcm       []byte
}

func NewDecoder(engine Engine) *Decoder {
	return &Decoder{engine: engine, utterance: fsm.UtteranceIdle}
}

// Process feeds one frame to the engine and reports the resulting state.
// A frame after a finalized or failed utterance opens a new one.
func (d *Decoder) Process(frame audio.Frame) State {
	if d.utterance != fsm.UtteranceRunning {
		d.advance(fsm.UtteranceBegin)
	}

	d.pcm = appendPCM16LE(d.pcm[:0], frame)
	code := d.engine.AcceptWaveform(d.pcm)

	switch {
	case code < 0:
		return d.fail(fmt.Errorf("recognizer rejected frame (code %d)", code))
	case code == 0:
		partial, err := parsePartial(d.engine.PartialResult())
		if err != nil {
			return d.fail(err)
		}
		d.advance(fsm.UtteranceAccept)
		return State{Kind: Running, Partial: partial}
	default:
		text, err := parseText(d.engine.Result())
		if err != nil {
			return d.fail(err)
		}
		d.advance(fsm.UtteranceEndpoint)
		return State{Kind: Finalized, Text: text}
	}
}

// Flush finalizes an open utterance at end of stream. ok is false when
// nothing was pending.
func (d *Decoder) Flush() (State, bool) {
	if d.utterance != fsm.UtteranceRunning {
		return State{}, false
	}
	text, err := parseText(d.engine.FinalResult())
	if err != nil {
		return d.fail(err), true
	}
	d.advance(fsm.UtteranceEndpoint)
	return State{Kind: Finalized, Text: text}, true
}

func (d *Decoder) fail(err error) State {
	d.advance(fsm.UtteranceFail)
	return State{Kind: Failed, Err: err}
}

func (d *Decoder) advance(event fsm.UtteranceEvent) {
	// Process and Flush only issue events valid for the current state.
	if next, err := fsm.AdvanceUtterance(d.utterance, event); err == nil {
		d.utterance = next
	}
}
