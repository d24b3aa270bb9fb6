package workflow

// BuildInvoiceStateMachine creates a state machine configured with the NFS-e
// emission lifecycle, positioned at the given initial state.
//
// SENDING is transient: it is written before the webservice call so concurrent
// readers see the invoice as in flight, and it always resolves to SENT or
// SEND_ERROR. APPROVED and CANCELLED are terminal.
func BuildInvoiceStateMachine(initialState State) StateMachine {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerValidate, StateValidated).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateValidated).
		Permit(TriggerStartSend, StateSending).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateSending).
		Permit(TriggerConfirmSend, StateSent).
		Permit(TriggerFailSend, StateSendError)

	b.Configure(StateSent).
		Permit(TriggerMarkProcessing, StateProcessing).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerFailProcessing, StateProcessingError).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateProcessing).
		Permit(TriggerMarkProcessing, StateProcessing).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerFailProcessing, StateProcessingError).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateSendError).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateRejected).
		Permit(TriggerCancel, StateCancelled)

	// PROCESSING_ERROR keeps its remote reference, so polling may resume
	b.Configure(StateProcessingError).
		Permit(TriggerMarkProcessing, StateProcessing).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerFailProcessing, StateProcessingError)

	// APPROVED and CANCELLED are terminal - no outgoing transitions

	return b.Build(initialState)
}
