package statemech

import (
	"fmt"
)

// FaultedComponent names the protocol phase whose handler failed.
type FaultedComponent int

const (
	ComponentExitHandler FaultedComponent = iota
	ComponentGroupExitHandler
	ComponentTransitionHandler
	ComponentGroupEntryHandler
	ComponentEntryHandler
)

func (c FaultedComponent) String() string {
	switch c {
	case ComponentExitHandler:
		return "exit handler"
	case ComponentGroupExitHandler:
		return "group exit handler"
	case ComponentTransitionHandler:
		return "transition handler"
	case ComponentGroupEntryHandler:
		return "group entry handler"
	case ComponentEntryHandler:
		return "entry handler"
	default:
		return "unknown"
	}
}

// Fault records the handler failure that latched a machine.
type Fault struct {
	Component FaultedComponent
	Err       error
	From      State
	To        State
	Event     *Event

	// Group is set for group handler failures.
	Group *Group
}

func (f *Fault) String() string {
	where := fmt.Sprintf("%s of transition '%s' -> '%s' on '%s'", f.Component, f.From, f.To, f.Event)
	if f.Group != nil {
		where += fmt.Sprintf(" (group '%s')", f.Group)
	}
	return fmt.Sprintf("%s failed: %v", where, f.Err)
}
