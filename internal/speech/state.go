package speech

import "fmt"

// Kind tags a RecognitionState.
type Kind int

const (
	// Running means the utterance is still open; Partial may carry a hint.
	Running Kind = iota + 1
	// Finalized means the decoder reached an endpoint; Text is the best hypothesis.
	Finalized
	// Failed means the engine rejected the frame; Err describes why.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Running:
		return "running"
	case Finalized:
		return "finalized"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is the per-frame recognition outcome.
type State struct {
	Kind    Kind
	Text    string
	Partial string
	Err     error
}
