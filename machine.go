package statemech

import (
	"fmt"
)

type machineID int

const (
	noMachine machineID = -1
	rootID    machineID = 0
)

// machineRecord is the arena entry behind a Machine handle.
type machineRecord struct {
	name string

	// parent is the state owning this machine, noState for the root.
	parent stateID

	// states are in registration order.
	states []stateID

	initial stateID
	current stateID
}

// Machine is a handle to the root machine or to a child machine owned by a
// state. Handles are comparable.
type Machine struct {
	sm *StateMachine
	id machineID
}

func (m Machine) rec() *machineRecord {
	return m.sm.machines[m.id]
}

// IsValid reports whether m refers to a machine.
func (m Machine) IsValid() bool {
	return m.sm != nil
}

// Name returns the machine name.
func (m Machine) Name() string {
	return m.rec().name
}

// Root returns the root machine of the hierarchy.
func (m Machine) Root() *StateMachine {
	return m.sm
}

// IsRoot reports whether m is the outermost machine.
func (m Machine) IsRoot() bool {
	return m.id == rootID
}

// ParentState returns the state owning m, or false for the root.
func (m Machine) ParentState() (State, bool) {
	p := m.rec().parent
	if p == noState {
		return State{}, false
	}
	return m.sm.state(p), true
}

// CreateState adds a state to the machine.
func (m Machine) CreateState(name string) State {
	return m.sm.newState(m.id, name)
}

// CreateInitialState adds a state to the machine and marks it as the initial
// state. It panics with a ConfigurationError if the machine already has one.
func (m Machine) CreateInitialState(name string) State {
	rec := m.rec()
	if rec.initial != noState {
		panic(&ConfigurationError{Message: fmt.Sprintf(
			"machine '%s' already has initial state '%s'", rec.name, m.sm.state(rec.initial))})
	}
	s := m.sm.newState(m.id, name)
	rec.initial = s.id
	if m.sm.isActive(m.id) {
		rec.current = s.id
	}
	return s
}

// States returns the machine states in registration order.
func (m Machine) States() []State {
	rec := m.rec()
	states := make([]State, len(rec.states))
	for i, id := range rec.states {
		states[i] = m.sm.state(id)
	}
	return states
}

// InitialState returns the initial state, if one was created.
func (m Machine) InitialState() (State, bool) {
	id := m.rec().initial
	if id == noState {
		return State{}, false
	}
	return m.sm.state(id), true
}

// CurrentState returns the current state of m. It returns the zero State when
// the machine is inactive, and a MachineFaultedError when the root is faulted.
func (m Machine) CurrentState() (State, error) {
	if f := m.sm.Fault(); f != nil {
		return State{}, &MachineFaultedError{Fault: f}
	}
	id := m.rec().current
	if id == noState {
		return State{}, nil
	}
	return m.sm.state(id), nil
}

// IsActive reports whether m has a current state.
func (m Machine) IsActive() bool {
	return m.rec().current != noState
}

// IsChildOf reports whether m is nested, at any depth, inside parent.
func (m Machine) IsChildOf(parent Machine) bool {
	if m.sm != parent.sm {
		return false
	}
	return m.sm.isDescendant(m.id, parent.id) && m.id != parent.id
}

func (m Machine) String() string {
	if !m.IsValid() {
		return NullString
	}
	return m.rec().name
}

// isActive reports whether the machine may hold a current state: the root
// always may, a child only while its parent state is current.
func (sm *StateMachine) isActive(id machineID) bool {
	parent := sm.machines[id].parent
	if parent == noState {
		return true
	}
	owner := sm.states[parent].machine
	return sm.machines[owner].current == parent
}

// isDescendant reports whether id is ancestor or nested inside it.
func (sm *StateMachine) isDescendant(id, ancestor machineID) bool {
	for cur := id; ; {
		if cur == ancestor {
			return true
		}
		parent := sm.machines[cur].parent
		if parent == noState {
			return false
		}
		cur = sm.states[parent].machine
	}
}

func (sm *StateMachine) machine(id machineID) Machine {
	return Machine{sm: sm, id: id}
}

func (sm *StateMachine) newMachine(name string, parent stateID) machineID {
	id := machineID(len(sm.machines))
	sm.machines = append(sm.machines, &machineRecord{
		name:    name,
		parent:  parent,
		initial: noState,
		current: noState,
	})
	return id
}
