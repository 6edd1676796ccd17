package statemech

import (
	"fmt"
)

// TransitionKind distinguishes the transition variants.
type TransitionKind int

const (
	// KindNormal moves to a fixed destination, exiting the source and entering
	// the destination.
	KindNormal TransitionKind = iota
	// KindInner stays in the source state without exit or entry.
	KindInner
	// KindDynamic resolves its destination when the event is fired.
	KindDynamic
	// KindForced is a transition commanded with ForceTransition.
	KindForced
	// KindIgnored accepts the event without changing state.
	KindIgnored
)

func (k TransitionKind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindInner:
		return "inner"
	case KindDynamic:
		return "dynamic"
	case KindForced:
		return "forced"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// FireMode controls how a missing transition is reported.
type FireMode int

const (
	// FireModeStrict returns a TransitionNotFoundError.
	FireModeStrict FireMode = iota
	// FireModeTry reports false without an error.
	FireModeTry
)

func (m FireMode) String() string {
	if m == FireModeTry {
		return "try"
	}
	return "strict"
}

// Transition describes a registered transition.
type Transition struct {
	kind     TransitionKind
	from     State
	to       State
	event    *Event
	selector DynamicSelector
	guard    Guard
	handler  TransitionHandler
}

// WithGuard sets the guard. The transition is taken only when the guard returns
// true; a guard error is returned to the caller of Fire as is.
func (t *Transition) WithGuard(g Guard) *Transition {
	t.mustAcceptCallbacks()
	t.guard = g
	return t
}

// WithHandler sets the handler run between exiting the source and entering the
// destination.
func (t *Transition) WithHandler(h TransitionHandler) *Transition {
	t.mustAcceptCallbacks()
	t.handler = h
	return t
}

func (t *Transition) mustAcceptCallbacks() {
	if t.kind == KindIgnored {
		panic(&ConfigurationError{Message: fmt.Sprintf(
			"ignored transition from '%s' on '%s' cannot have a guard or handler", t.from, t.event)})
	}
}

// Kind returns the transition variant.
func (t *Transition) Kind() TransitionKind {
	return t.kind
}

// From returns the source state.
func (t *Transition) From() State {
	return t.from
}

// To returns the destination, which is not known for dynamic and ignored transitions.
func (t *Transition) To() (State, bool) {
	return t.to, t.to.IsValid()
}

// Event returns the event triggering the transition.
func (t *Transition) Event() *Event {
	return t.event
}

// HasGuard reports whether a guard was set.
func (t *Transition) HasGuard() bool {
	return t.guard != nil
}

// HasHandler reports whether a handler was set.
func (t *Transition) HasHandler() bool {
	return t.handler != nil
}

func (t *Transition) String() string {
	to := "?"
	if t.to.IsValid() {
		to = t.to.String()
	}
	return fmt.Sprintf("%s -> %s on %s (%s)", t.from, to, t.event, t.kind)
}

// transitionRun is one execution of the coordination protocol.
type transitionRun struct {
	from    State
	to      State
	event   *Event
	payload any
	mode    FireMode
	kind    TransitionKind
	inner   bool
	handler TransitionHandler
}

func (r transitionRun) info() TransitionInfo {
	return TransitionInfo{
		From:    r.from,
		To:      r.to,
		Event:   r.event,
		Payload: r.payload,
		IsInner: r.inner,
		Mode:    r.mode,
	}
}

func (r transitionRun) notification() TransitionNotification {
	return TransitionNotification{
		Machine: r.to.Machine(),
		From:    r.from,
		To:      r.to,
		Event:   r.event,
		Payload: r.payload,
		IsInner: r.inner,
		Mode:    r.mode,
		Kind:    r.kind,
	}
}
