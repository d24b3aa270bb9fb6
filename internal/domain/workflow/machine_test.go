package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestStateMachine_Fire(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).
		Permit(TriggerValidate, StateValidated).
		Permit(TriggerCancel, StateCancelled)

	m := b.Build(StateDraft)

	if err := m.Fire(context.Background(), TriggerValidate); err != nil {
		t.Fatalf("Fire(VALIDATE) error = %v", err)
	}
	if m.State() != StateValidated {
		t.Errorf("State() = %v, want %v", m.State(), StateValidated)
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).Permit(TriggerValidate, StateValidated)

	m := b.Build(StateDraft)

	err := m.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire(APPROVE) error = %v, want ErrInvalidTransition", err)
	}
	if m.State() != StateDraft {
		t.Errorf("State() after failed fire = %v, want %v", m.State(), StateDraft)
	}
}

func TestStateMachine_Fire_GuardFailed(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).PermitIf(TriggerValidate, StateValidated, func(ctx context.Context) bool {
		return false
	})

	m := b.Build(StateDraft)

	err := m.Fire(context.Background(), TriggerValidate)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want ErrGuardFailed", err)
	}
	if m.State() != StateDraft {
		t.Errorf("State() = %v, want %v", m.State(), StateDraft)
	}
}

func TestStateMachine_Fire_FirstPassingGuardWins(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).
		PermitIf(TriggerValidate, StateCancelled, func(ctx context.Context) bool { return false }).
		PermitIf(TriggerValidate, StateValidated, func(ctx context.Context) bool { return true })

	m := b.Build(StateDraft)

	if err := m.Fire(context.Background(), TriggerValidate); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if m.State() != StateValidated {
		t.Errorf("State() = %v, want %v", m.State(), StateValidated)
	}
}

func TestStateMachine_CanFire(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).Permit(TriggerValidate, StateValidated)

	m := b.Build(StateDraft)

	if !m.CanFire(TriggerValidate) {
		t.Errorf("CanFire(VALIDATE) = false, want true")
	}
	if m.CanFire(TriggerApprove) {
		t.Errorf("CanFire(APPROVE) = true, want false")
	}
}

func TestStateMachine_TargetState(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).Permit(TriggerValidate, StateValidated)

	m := b.Build(StateDraft)

	target, ok := m.TargetState(TriggerValidate)
	if !ok || target != StateValidated {
		t.Errorf("TargetState(VALIDATE) = (%v, %v), want (%v, true)", target, ok, StateValidated)
	}

	if _, ok := m.TargetState(TriggerApprove); ok {
		t.Errorf("TargetState(APPROVE) ok = true, want false")
	}
}

func TestStateMachine_PermittedTriggers_Sorted(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateSent).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerCancel, StateCancelled)

	m := b.Build(StateSent)

	triggers := m.PermittedTriggers()
	want := []Trigger{TriggerApprove, TriggerCancel, TriggerReject}
	if len(triggers) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", triggers, want)
	}
	for i := range want {
		if triggers[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, triggers[i], want[i])
		}
	}
}

func TestStateMachine_PermittedTriggers_TerminalState(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).Permit(TriggerCancel, StateCancelled)

	m := b.Build(StateCancelled)

	if triggers := m.PermittedTriggers(); len(triggers) != 0 {
		t.Errorf("PermittedTriggers() on terminal state = %v, want empty", triggers)
	}
}

func TestBuilder_Build_Isolation(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).Permit(TriggerValidate, StateValidated)

	m1 := b.Build(StateDraft)

	// Edges configured after Build must not leak into already-built machines
	b.Configure(StateDraft).Permit(TriggerApprove, StateApproved)
	m2 := b.Build(StateDraft)

	if m1.CanFire(TriggerApprove) {
		t.Errorf("machine built before Configure sees later edge")
	}
	if !m2.CanFire(TriggerApprove) {
		t.Errorf("machine built after Configure misses new edge")
	}
}

func TestBuilder_Configure_InvalidStatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Configure with invalid state did not panic")
		}
	}()
	NewBuilder().Configure(State("BOGUS"))
}
