package statemech

type stateID int

const noState stateID = -1

// stateRecord models the behaviour of a state.
type stateRecord struct {
	name string

	// machine owns the state for its whole lifetime.
	machine machineID

	// child is the optional child machine, noMachine if none.
	child machineID

	// transitions are kept in registration order; resolution takes the first match.
	transitions []*Transition

	// groups are in insertion order: entry walks them forward, exit in reverse.
	groups []*Group

	entry StateHandler
	exit  StateHandler

	canTransition CanTransitionFunc
	handleEvent   HandleEventFunc
}

// State is a handle to a state of a machine hierarchy. Handles are comparable;
// the zero State refers to no state.
type State struct {
	sm *StateMachine
	id stateID
}

func (s State) rec() *stateRecord {
	return s.sm.states[s.id]
}

// IsValid reports whether s refers to a state.
func (s State) IsValid() bool {
	return s.sm != nil
}

// Name returns the display name given at creation.
func (s State) Name() string {
	return s.rec().name
}

// Machine returns the machine owning s.
func (s State) Machine() Machine {
	return s.sm.machine(s.rec().machine)
}

// ChildMachine returns the child machine of s, if any.
func (s State) ChildMachine() (Machine, bool) {
	c := s.rec().child
	if c == noMachine {
		return Machine{}, false
	}
	return s.sm.machine(c), true
}

// IsCurrent reports whether s is the current state of its machine. A state of an
// inactive child machine is never current.
func (s State) IsCurrent() bool {
	return s.sm.machines[s.rec().machine].current == s.id
}

// Groups returns the groups s belongs to, in insertion order.
func (s State) Groups() []*Group {
	return append([]*Group(nil), s.rec().groups...)
}

// Transitions returns the outgoing transitions of s in registration order.
func (s State) Transitions() []*Transition {
	return append([]*Transition(nil), s.rec().transitions...)
}

// Identifier returns the snapshot identifier of s.
func (s State) Identifier() string {
	return s.sm.identifiers(s.rec().machine)[s.id]
}

func (s State) String() string {
	if !s.IsValid() {
		return NullString
	}
	return s.rec().name
}

func (sm *StateMachine) state(id stateID) State {
	return State{sm: sm, id: id}
}

func (sm *StateMachine) newState(owner machineID, name string) State {
	id := stateID(len(sm.states))
	sm.states = append(sm.states, &stateRecord{
		name:    name,
		machine: owner,
		child:   noMachine,
	})
	m := sm.machines[owner]
	m.states = append(m.states, id)
	return sm.state(id)
}
