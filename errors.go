package statemech

import (
	"fmt"
)

// ConfigurationError indicates an invalid machine definition. It is raised as a
// panic by the configuration methods, the same way the builder rejects other
// programming mistakes.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// InvalidOperationError indicates an operation that is not valid given the current state.
type InvalidOperationError struct {
	Message string
}

func (e *InvalidOperationError) Error() string {
	return e.Message
}

// ArgumentError indicates an invalid argument was passed.
type ArgumentError struct {
	ParamName string
	Message   string
}

func (e *ArgumentError) Error() string {
	if e.ParamName != "" {
		return fmt.Sprintf("%s (parameter: %s)", e.Message, e.ParamName)
	}
	return e.Message
}

// TransitionNotFoundError is returned by a strict fire when no transition
// accepted the event.
type TransitionNotFoundError struct {
	From    State
	Event   *Event
	Machine Machine
}

func (e *TransitionNotFoundError) Error() string {
	if !e.From.IsValid() {
		return fmt.Sprintf("could not fire event '%s': machine '%s' has no current state",
			e.Event, e.Machine)
	}
	return fmt.Sprintf("no transition from state '%s' on event '%s' could be found in machine '%s'",
		e.From, e.Event, e.Machine)
}

// TransitionFailedError is returned by the call whose transition faulted the machine.
type TransitionFailedError struct {
	Fault *Fault
}

func (e *TransitionFailedError) Error() string {
	return fmt.Sprintf("transition failed: %s", e.Fault)
}

func (e *TransitionFailedError) Unwrap() error {
	return e.Fault.Err
}

// MachineFaultedError is returned by every fire, force or current state read on
// a faulted machine until Reset is called.
type MachineFaultedError struct {
	Fault *Fault
}

func (e *MachineFaultedError) Error() string {
	return fmt.Sprintf("state machine is faulted: %s", e.Fault)
}

func (e *MachineFaultedError) Unwrap() error {
	return e.Fault.Err
}

// InvalidStateError indicates a state that cannot be used where it was given,
// typically a dynamic transition target owned by another machine.
type InvalidStateError struct {
	State   State
	Machine Machine
	Message string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("state '%s' is not valid in machine '%s': %s", e.State, e.Machine, e.Message)
}

// SerializationError is returned when a snapshot cannot be produced or applied.
type SerializationError struct {
	Message string
}

func (e *SerializationError) Error() string {
	return "serialization: " + e.Message
}

// HandlerPanicError wraps a value recovered from a panicking handler.
type HandlerPanicError struct {
	Value any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Unwrap returns the recovered value when it is an error.
func (e *HandlerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
