package fsm

import "fmt"

// Utterance tracks one decoder hypothesis from first frame to endpoint.
type Utterance string

type UtteranceEvent string

const (
	UtteranceIdle      Utterance = "idle"
	UtteranceRunning   Utterance = "running"
	UtteranceFinalized Utterance = "finalized"
	UtteranceFailed    Utterance = "failed"
)

const (
	// UtteranceBegin opens a new hypothesis. Finalized and failed utterances
	// accept it directly so callers never issue an explicit reset.
	UtteranceBegin    UtteranceEvent = "begin"
	UtteranceAccept   UtteranceEvent = "accept"
	UtteranceEndpoint UtteranceEvent = "endpoint"
	UtteranceFail     UtteranceEvent = "fail"
)

func AdvanceUtterance(current Utterance, event UtteranceEvent) (Utterance, error) {
	switch current {
	case UtteranceIdle, UtteranceFinalized, UtteranceFailed:
		if event == UtteranceBegin {
			return UtteranceRunning, nil
		}
		return current, invalidUtterance(current, event)
	case UtteranceRunning:
		switch event {
		case UtteranceAccept:
			return UtteranceRunning, nil
		case UtteranceEndpoint:
			return UtteranceFinalized, nil
		case UtteranceFail:
			return UtteranceFailed, nil
		default:
			return current, invalidUtterance(current, event)
		}
	default:
		return current, fmt.Errorf("unknown utterance state %q", current)
	}
}

func invalidUtterance(state Utterance, event UtteranceEvent) error {
	return fmt.Errorf("invalid utterance transition: %s --(%s)--> ?", state, event)
}
