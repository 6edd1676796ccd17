// Package graph renders state machine hierarchies as DOT or Mermaid diagrams.
package graph

import (
	"github.com/atlekbai/statemech"
)

// State represents a state in the graph.
type State struct {
	// StateName is the display name of the state.
	StateName string

	// NodeName is unique across the hierarchy: the snapshot identifiers of the
	// state and its ancestors joined with "_".
	NodeName string

	// EntryActions are the entry handler descriptions.
	EntryActions []string

	// ExitActions are the exit handler descriptions.
	ExitActions []string

	// Groups are the names of the groups the state belongs to.
	Groups []string

	// Leaving are the transitions leaving this state.
	Leaving []*Transition

	// Arriving are the transitions arriving at this state.
	Arriving []*Transition

	// SuperState is the state owning the machine of this state, if any.
	SuperState *SuperState

	// Cluster is set when the state owns a child machine.
	Cluster *SuperState

	// StateInfo contains the underlying state information.
	StateInfo *statemech.StateInfo
}

// SuperState represents a state owning a child machine.
type SuperState struct {
	*State

	// MachineName is the name of the child machine.
	MachineName string

	// InitialState is the initial state of the child machine, if any.
	InitialState *State

	// SubStates are the states of the child machine.
	SubStates []*State
}

// Decision represents a decision node in the graph (for dynamic transitions).
type Decision struct {
	// NodeName is the name of the decision node.
	NodeName string

	// Method contains information about the destination selector.
	Method statemech.InvocationInfo

	// Arriving are the transitions arriving at this decision node.
	Arriving []*Transition
}

// Transition represents a transition in the graph.
type Transition struct {
	// Trigger is the event causing this transition.
	Trigger statemech.EventInfo

	// SourceState is the source state of the transition.
	SourceState *State

	// DestinationState is the destination state, nil for dynamic transitions.
	DestinationState *State

	// Decision is the decision node of a dynamic transition.
	Decision *Decision

	// Guards are the guard descriptions.
	Guards []string

	// Actions are the transition handler descriptions.
	Actions []string

	// ExecuteEntryExitActions is false for inner and ignored transitions.
	ExecuteEntryExitActions bool

	// Ignored marks an event the state swallows.
	Ignored bool
}

// destinationNodeName returns the node the transition points to.
func (t *Transition) destinationNodeName() string {
	if t.Decision != nil {
		return t.Decision.NodeName
	}
	if t.DestinationState != nil {
		return t.DestinationState.NodeName
	}
	return ""
}
