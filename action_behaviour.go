package statemech

// TransitionHandler runs while a transition is in progress, after the source
// has been exited and before the current state changes.
type TransitionHandler func(info TransitionInfo) error

// StateHandler is an entry or exit handler of a state.
type StateHandler func(info TransitionInfo) error

// GroupHandler is an entry or exit handler of a group.
type GroupHandler func(info GroupHandlerInfo) error

// TypedHandler converts a handler taking a typed payload to a TransitionHandler.
func TypedHandler[T any](handler func(info TransitionInfo, payload T) error) TransitionHandler {
	return func(info TransitionInfo) error {
		payload, _ := PayloadAs[T](info)
		return handler(info, payload)
	}
}

// Action adapts a handler that cannot fail.
func Action(fn func(info TransitionInfo)) func(info TransitionInfo) error {
	return func(info TransitionInfo) error {
		fn(info)
		return nil
	}
}

// invoke runs a handler, turning a panic into a HandlerPanicError.
func invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{Value: r}
		}
	}()
	return fn()
}
