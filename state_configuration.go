package statemech

import (
	"fmt"
	"slices"
)

// TransitionBuilder picks the destination of a transition started with
// State.TransitionOn.
type TransitionBuilder struct {
	from  State
	event *Event
}

// TransitionOn starts a transition from s on the given event.
func (s State) TransitionOn(t Trigger) *TransitionBuilder {
	return &TransitionBuilder{from: s, event: t.event()}
}

// To completes the transition with a fixed destination. A destination equal to
// the source is an external self transition: the state is exited and re-entered.
func (b *TransitionBuilder) To(to State) *Transition {
	if !to.IsValid() {
		panic(&ConfigurationError{Message: fmt.Sprintf(
			"transition from '%s' on '%s' has no destination", b.from, b.event)})
	}
	if to.sm != b.from.sm || to.rec().machine != b.from.rec().machine {
		panic(&ConfigurationError{Message: fmt.Sprintf(
			"transition from '%s' to '%s' on '%s' links states of different machines",
			b.from, to, b.event)})
	}
	return b.from.sm.addTransition(&Transition{
		kind:  KindNormal,
		from:  b.from,
		to:    to,
		event: b.event,
	})
}

// ToDynamic completes the transition with a destination chosen when the event
// is fired. The selector returning false means the transition does not apply.
func (b *TransitionBuilder) ToDynamic(selector DynamicSelector) *Transition {
	if selector == nil {
		panic(&ConfigurationError{Message: "dynamic transition requires a selector"})
	}
	return b.from.sm.addTransition(&Transition{
		kind:     KindDynamic,
		from:     b.from,
		event:    b.event,
		selector: selector,
	})
}

// Inner completes the transition as an inner self transition of the source.
func (b *TransitionBuilder) Inner() *Transition {
	return b.from.InnerSelfTransitionOn(b.event)
}

// InnerSelfTransitionOn configures a transition from s to itself which runs its
// handler without exiting or re-entering s.
func (s State) InnerSelfTransitionOn(t Trigger) *Transition {
	return s.sm.addTransition(&Transition{
		kind:  KindInner,
		from:  s,
		to:    s,
		event: t.event(),
	})
}

// Ignore configures s to swallow the given events: they are accepted without a
// state change or any handler. No transition may be added for the same event
// afterwards.
func (s State) Ignore(triggers ...Trigger) State {
	for _, t := range triggers {
		s.sm.addTransition(&Transition{
			kind:  KindIgnored,
			from:  s,
			event: t.event(),
		})
	}
	return s
}

// OnEntry sets the handler run when s is entered.
func (s State) OnEntry(h StateHandler) State {
	s.rec().entry = h
	return s
}

// OnExit sets the handler run when s is exited.
func (s State) OnExit(h StateHandler) State {
	s.rec().exit = h
	return s
}

// WithCanTransition sets a hook consulted before the guard of every transition
// leaving s.
func (s State) WithCanTransition(fn CanTransitionFunc) State {
	s.rec().canTransition = fn
	return s
}

// WithEventHandler sets a hook consulted before the transitions of s. When it
// returns a state, an ordinary transition to that state runs and the registered
// transitions are skipped.
func (s State) WithEventHandler(fn HandleEventFunc) State {
	s.rec().handleEvent = fn
	return s
}

// AddToGroup adds s to the given groups.
func (s State) AddToGroup(groups ...*Group) State {
	for _, g := range groups {
		g.AddStates(s)
	}
	return s
}

// CreateChildMachine creates the child machine owned by s. It panics with a
// ConfigurationError if s already has one.
func (s State) CreateChildMachine(name string) Machine {
	rec := s.rec()
	if rec.child != noMachine {
		panic(&ConfigurationError{Message: fmt.Sprintf(
			"state '%s' already has child machine '%s'", s, s.sm.machine(rec.child))})
	}
	rec.child = s.sm.newMachine(name, s.id)
	return s.sm.machine(rec.child)
}

// addTransition validates and registers t on its source state.
func (sm *StateMachine) addTransition(t *Transition) *Transition {
	from := t.from.rec()
	owner := sm.machine(from.machine)

	ignored := slices.ContainsFunc(from.transitions, func(o *Transition) bool {
		return o.event == t.event && o.kind == KindIgnored
	})
	if ignored {
		panic(&ConfigurationError{Message: fmt.Sprintf(
			"state '%s' ignores event '%s'; a later transition on it would never be taken",
			t.from, t.event)})
	}

	t.event.bind(owner)
	from.transitions = append(from.transitions, t)
	return t
}
