package workflow

// State represents a workflow state in the invoice emission lifecycle
type State string

const (
	StateDraft           State = "DRAFT"
	StateValidated       State = "VALIDATED"
	StateSending         State = "SENDING"
	StateSent            State = "SENT"
	StateProcessing      State = "PROCESSING"
	StateApproved        State = "APPROVED"
	StateRejected        State = "REJECTED"
	StateSendError       State = "SEND_ERROR"
	StateProcessingError State = "PROCESSING_ERROR"
	StateCancelled       State = "CANCELLED"
)

var validStates = map[State]bool{
	StateDraft:           true,
	StateValidated:       true,
	StateSending:         true,
	StateSent:            true,
	StateProcessing:      true,
	StateApproved:        true,
	StateRejected:        true,
	StateSendError:       true,
	StateProcessingError: true,
	StateCancelled:       true,
}

var terminalStates = map[State]bool{
	StateApproved:  true,
	StateCancelled: true,
}

// cancellableStates is the set of states from which a cancellation may still be
// issued. APPROVED and PROCESSING_ERROR are excluded: an approved NFS-e can only
// be voided through the municipal substitution flow, which is outside this core.
var cancellableStates = map[State]bool{
	StateDraft:      true,
	StateValidated:  true,
	StateSent:       true,
	StateProcessing: true,
	StateSendError:  true,
	StateRejected:   true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsCancellable returns true if an invoice in this state may still be cancelled
func (s State) IsCancellable() bool {
	return cancellableStates[s]
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
