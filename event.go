package statemech

import (
	"fmt"
	"reflect"
)

// Trigger is implemented by *Event and *EventOf.
type Trigger interface {
	event() *Event
}

// Event is a named trigger. An event is bound to the machine of the first
// transition using it; later transitions must belong to that machine or to one
// of its descendants.
type Event struct {
	name        string
	payloadType reflect.Type

	sm      *StateMachine
	machine machineID
}

// NewEvent creates an event without a payload.
func NewEvent(name string) *Event {
	return &Event{name: name, machine: noMachine}
}

func (e *Event) event() *Event {
	return e
}

// Name returns the event name.
func (e *Event) Name() string {
	return e.name
}

// PayloadType returns the payload type, or nil for an untyped event.
func (e *Event) PayloadType() reflect.Type {
	return e.payloadType
}

// Machine returns the machine the event is bound to.
func (e *Event) Machine() (Machine, bool) {
	if e.sm == nil {
		return Machine{}, false
	}
	return e.sm.machine(e.machine), true
}

// Fire fires the event. It returns a TransitionNotFoundError if no transition
// accepted it.
func (e *Event) Fire() error {
	_, err := e.fire(nil, FireModeStrict)
	return err
}

// TryFire fires the event and reports whether a transition accepted it. A
// missing transition is not an error.
func (e *Event) TryFire() (bool, error) {
	return e.fire(nil, FireModeTry)
}

func (e *Event) fire(payload any, mode FireMode) (bool, error) {
	if e.sm == nil {
		return false, &InvalidOperationError{Message: fmt.Sprintf(
			"event '%s' is not used by any transition", e.name)}
	}
	return e.sm.fire(e, payload, mode)
}

// ValidatePayload ensures the payload is compatible with the event's payload type.
func (e *Event) ValidatePayload(payload any) error {
	if e.payloadType == nil {
		if payload != nil {
			return &ArgumentError{
				ParamName: "payload",
				Message:   fmt.Sprintf("event '%s' does not carry a payload, got %T", e.name, payload),
			}
		}
		return nil
	}
	if payload == nil {
		switch e.payloadType.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return nil
		}
		return &ArgumentError{
			ParamName: "payload",
			Message:   fmt.Sprintf("event '%s' requires a payload of type %v", e.name, e.payloadType),
		}
	}
	if t := reflect.TypeOf(payload); !t.AssignableTo(e.payloadType) {
		return &ArgumentError{
			ParamName: "payload",
			Message:   fmt.Sprintf("payload is of type %v but event '%s' expects %v", t, e.name, e.payloadType),
		}
	}
	return nil
}

// bind records the owning machine on first use.
func (e *Event) bind(m Machine) {
	if e.sm == nil {
		e.sm = m.sm
		e.machine = m.id
		return
	}
	if e.sm != m.sm || !m.sm.isDescendant(m.id, e.machine) {
		panic(&ConfigurationError{Message: fmt.Sprintf(
			"event '%s' belongs to machine '%s' and cannot be used in machine '%s'",
			e.name, e.sm.machine(e.machine), m)})
	}
}

func (e *Event) String() string {
	if e == nil {
		return NullString
	}
	return e.name
}

// EventOf is an event carrying a payload of type T.
type EventOf[T any] struct {
	*Event
}

// NewEventOf creates an event whose payload has type T.
func NewEventOf[T any](name string) *EventOf[T] {
	return &EventOf[T]{
		Event: &Event{
			name:        name,
			payloadType: reflect.TypeFor[T](),
			machine:     noMachine,
		},
	}
}

// Fire fires the event with a payload.
func (e *EventOf[T]) Fire(payload T) error {
	_, err := e.Event.fire(payload, FireModeStrict)
	return err
}

// TryFire fires the event with a payload and reports whether a transition
// accepted it.
func (e *EventOf[T]) TryFire(payload T) (bool, error) {
	return e.Event.fire(payload, FireModeTry)
}
