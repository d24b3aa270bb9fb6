package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerValidate       Trigger = "VALIDATE"
	TriggerStartSend      Trigger = "START_SEND"
	TriggerConfirmSend    Trigger = "CONFIRM_SEND"
	TriggerFailSend       Trigger = "FAIL_SEND"
	TriggerMarkProcessing Trigger = "MARK_PROCESSING"
	TriggerApprove        Trigger = "APPROVE"
	TriggerReject         Trigger = "REJECT"
	TriggerFailProcessing Trigger = "FAIL_PROCESSING"
	TriggerCancel         Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
