package statemech

// TransitionInfo is passed to guards and to transition, entry and exit handlers.
type TransitionInfo struct {
	From    State
	To      State
	Event   *Event
	Payload any
	IsInner bool
	Mode    FireMode
}

// GroupHandlerInfo is passed to group entry and exit handlers.
type GroupHandlerInfo struct {
	TransitionInfo

	Group *Group
}

// DynamicSelectorInfo is passed to dynamic selectors and event handler hooks.
type DynamicSelectorInfo struct {
	From    State
	Event   *Event
	Payload any
	Mode    FireMode
}

// Guard decides whether a transition is taken. An error aborts the fire and is
// returned to its caller without faulting the machine.
type Guard func(info TransitionInfo) (bool, error)

// CanTransitionFunc is a state level guard applied to every transition leaving
// the state.
type CanTransitionFunc func(info TransitionInfo) (bool, error)

// DynamicSelector chooses the destination of a dynamic transition. Returning
// false means the transition does not apply.
type DynamicSelector func(info DynamicSelectorInfo) (State, bool)

// HandleEventFunc lets a state redirect an event to a destination of its
// choosing. Returning false falls back to the registered transitions.
type HandleEventFunc func(info DynamicSelectorInfo) (State, bool)

// Predicate adapts a plain boolean condition to a Guard.
func Predicate(cond func(info TransitionInfo) bool) Guard {
	return func(info TransitionInfo) (bool, error) {
		return cond(info), nil
	}
}

// TypedGuard converts a guard taking a typed payload to a Guard. A payload of
// another type is passed as the zero value.
func TypedGuard[T any](guard func(info TransitionInfo, payload T) (bool, error)) Guard {
	return func(info TransitionInfo) (bool, error) {
		payload, _ := PayloadAs[T](info)
		return guard(info, payload)
	}
}

// PayloadAs returns the payload as T.
func PayloadAs[T any](info TransitionInfo) (T, bool) {
	payload, ok := info.Payload.(T)
	return payload, ok
}
