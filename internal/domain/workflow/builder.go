package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// edge is one configured transition, with an optional guard
type edge struct {
	to    State
	guard GuardFunc
}

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions out of a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type builder struct {
	edges map[State]map[Trigger][]edge
}

type stateConfiguration struct {
	b    *builder
	from State
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &builder{edges: make(map[State]map[Trigger][]edge)}
}

func (b *builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.edges[state]; !ok {
		b.edges[state] = make(map[Trigger][]edge)
	}
	return &stateConfiguration{b: b, from: state}
}

// Build copies the configured edges so machines built from the same builder
// cannot observe later Configure calls.
func (b *builder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	edges := make(map[State]map[Trigger][]edge, len(b.edges))
	for from, byTrigger := range b.edges {
		copied := make(map[Trigger][]edge, len(byTrigger))
		for trigger, list := range byTrigger {
			copied[trigger] = append([]edge(nil), list...)
		}
		edges[from] = copied
	}

	return &stateMachine{current: initialState, edges: edges}
}

func (c *stateConfiguration) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfiguration) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.b.edges[c.from][trigger] = append(c.b.edges[c.from][trigger], edge{to: toState, guard: guard})
	return c
}
