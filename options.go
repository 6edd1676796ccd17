package statemech

import (
	"go.uber.org/zap"
)

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(sm *StateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithSynchronizer sets the Synchronizer wrapping top level fire, force and
// reset calls.
func WithSynchronizer(s Synchronizer) Option {
	return func(sm *StateMachine) {
		if s != nil {
			sm.synchronizer = s
		}
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(sm *StateMachine) {
		sm.observers.Register(o)
	}
}
