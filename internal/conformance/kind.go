package conformance

import "fmt"

// Kind tags the concrete shape of a conformance record.
type Kind uint8

const (
	KindNormal Kind = iota + 1
	KindSpecialized
	KindInherited
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindSpecialized:
		return "specialized"
	case KindInherited:
		return "inherited"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// State is the completion state of a conformance.
type State uint8

const (
	// StateIncomplete accepts new witnesses.
	StateIncomplete State = iota
	// StateComplete is terminal: every requirement has a witness, no more writes.
	StateComplete
	// StateInvalid is terminal: checking failed, unset witnesses stay absent.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateIncomplete:
		return "incomplete"
	case StateComplete:
		return "complete"
	case StateInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// IsFrozen reports whether the state rejects writes.
func (s State) IsFrozen() bool {
	return s != StateIncomplete
}
