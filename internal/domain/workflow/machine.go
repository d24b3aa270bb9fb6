package workflow

import (
	"context"
	"fmt"
	"sort"
)

// StateMachine tracks the current state of one invoice and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// TargetState returns the state the trigger would move to from the current
	// state, without firing it. The second return is false when the trigger is
	// not permitted. Guards are not evaluated; callers that need guard semantics
	// must use Fire.
	TargetState(trigger Trigger) (State, bool)

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}

type stateMachine struct {
	current State
	edges   map[State]map[Trigger][]edge
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.edgesFor(trigger)) > 0
}

func (m *stateMachine) TargetState(trigger Trigger) (State, bool) {
	candidates := m.edgesFor(trigger)
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0].to, true
}

// Fire tries each configured edge for the trigger in declaration order and
// commits the first one whose guard passes.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.edgesFor(trigger)
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, e := range candidates {
		if e.guard == nil || e.guard(ctx) {
			m.current = e.to
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	byTrigger, ok := m.edges[m.current]
	if !ok {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(byTrigger))
	for t := range byTrigger {
		triggers = append(triggers, t)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

func (m *stateMachine) edgesFor(trigger Trigger) []edge {
	byTrigger, ok := m.edges[m.current]
	if !ok {
		return nil
	}
	return byTrigger[trigger]
}
