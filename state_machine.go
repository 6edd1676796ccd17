package statemech

import (
	"fmt"
	"strings"
	"sync"

	"github.com/petermattis/goid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StateMachine is the root of a machine hierarchy. It embeds the root Machine
// and coordinates every transition of the hierarchy.
type StateMachine struct {
	Machine

	// states and machines are the arena behind State and Machine handles.
	states   []*stateRecord
	machines []*machineRecord

	logger       *zap.Logger
	synchronizer Synchronizer
	observers    observers

	// mutex guards the fields below.
	mutex sync.Mutex

	// executing indicates a transition cascade is running on goroutine owner.
	executing bool
	owner     int64

	// resets counts Reset calls; a protocol run stops when it changes.
	resets uint64

	// queue holds calls made while executing, in arrival order.
	queue []queuedCall

	fault *Fault
}

// queuedCall is a fire or force request waiting for the running cascade.
type queuedCall func() (bool, error)

// New creates a root machine. States are added with CreateState and
// CreateInitialState.
func New(name string, opts ...Option) *StateMachine {
	sm := &StateMachine{
		logger:       zap.NewNop(),
		synchronizer: passthrough{},
	}
	sm.Machine = sm.machine(sm.newMachine(name, noState))
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Fire fires an event with a payload, which must be nil for untyped events.
// Firing from a guard, handler or observer queues the event until the running
// transition completes; the queued call then reports success. Calls from other
// goroutines go through the Synchronizer and wait for the running cascade.
func (sm *StateMachine) Fire(t Trigger, payload any) error {
	_, err := sm.fireTrigger(t, payload, FireModeStrict)
	return err
}

// TryFire is like Fire but reports a missing transition as false instead of
// an error.
func (sm *StateMachine) TryFire(t Trigger, payload any) (bool, error) {
	return sm.fireTrigger(t, payload, FireModeTry)
}

func (sm *StateMachine) fireTrigger(t Trigger, payload any, mode FireMode) (bool, error) {
	e := t.event()
	if e.sm != sm {
		return false, &InvalidOperationError{Message: fmt.Sprintf(
			"event '%s' is not used by machine '%s'", e, sm.Name())}
	}
	return sm.fire(e, payload, mode)
}

// fire is the entry point of every fire call.
func (sm *StateMachine) fire(e *Event, payload any, mode FireMode) (bool, error) {
	if f := sm.Fault(); f != nil {
		return false, &MachineFaultedError{Fault: f}
	}
	if err := e.ValidatePayload(payload); err != nil {
		return false, err
	}
	call := queuedCall(func() (bool, error) {
		return sm.fireNow(e, payload, mode)
	})
	if queued, err := sm.enqueueIfExecuting(call); queued {
		return err == nil, err
	}
	return sm.synchronizer.FireEvent(func() (bool, error) {
		return sm.execute(call)
	}, mode)
}

// ForceTransition moves the hierarchy to the given state regardless of the
// registered transitions, crossing as many nesting levels as needed. Exit,
// entry and group handlers run; no transition handler does. The event and
// payload, both optional, are passed to the handlers.
func (sm *StateMachine) ForceTransition(to State, e *Event, payload any) error {
	if !to.IsValid() || to.sm != sm {
		return &InvalidStateError{State: to, Machine: sm.Machine, Message: "state does not belong to this machine"}
	}
	if f := sm.Fault(); f != nil {
		return &MachineFaultedError{Fault: f}
	}
	if e != nil {
		if err := e.ValidatePayload(payload); err != nil {
			return err
		}
	}
	call := queuedCall(func() (bool, error) {
		return true, sm.forceNow(to, e, payload)
	})
	if queued, err := sm.enqueueIfExecuting(call); queued {
		return err
	}
	return sm.synchronizer.ForceTransition(func() error {
		_, err := sm.execute(call)
		return err
	})
}

// Reset clears the fault and the queue and returns every active machine to its
// initial state. Child machines of states that are not current become
// inactive. No handlers run. Called from a handler it takes effect at once and
// the running transition stops without committing its destination.
func (sm *StateMachine) Reset() {
	if sm.ownsCascade() {
		sm.reset()
		return
	}
	sm.synchronizer.Reset(sm.reset)
}

func (sm *StateMachine) reset() {
	sm.mutex.Lock()
	sm.fault = nil
	sm.queue = nil
	sm.resets++
	sm.mutex.Unlock()

	sm.resetMachine(rootID, true)
	sm.logger.Debug("state machine reset", zap.String("machine", sm.Name()))
}

func (sm *StateMachine) resetMachine(id machineID, active bool) {
	m := sm.machines[id]
	if active {
		m.current = m.initial
	} else {
		m.current = noState
	}
	for _, sid := range m.states {
		if child := sm.states[sid].child; child != noMachine {
			sm.resetMachine(child, active && m.current == sid)
		}
	}
}

// Fault returns the latched fault, or nil.
func (sm *StateMachine) Fault() *Fault {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	return sm.fault
}

// IsFaulted reports whether a handler failure has latched the machine.
func (sm *StateMachine) IsFaulted() bool {
	return sm.Fault() != nil
}

// ActiveStates returns the current state of every active machine, from the
// root down to the deepest active child.
func (sm *StateMachine) ActiveStates() ([]State, error) {
	if f := sm.Fault(); f != nil {
		return nil, &MachineFaultedError{Fault: f}
	}
	return sm.activeStatesUnchecked(), nil
}

// CurrentStateRecursive returns the current state of the deepest active machine.
func (sm *StateMachine) CurrentStateRecursive() (State, error) {
	active, err := sm.ActiveStates()
	if err != nil || len(active) == 0 {
		return State{}, err
	}
	return active[len(active)-1], nil
}

// IsInState reports whether s is current. A current state's machine is
// always active, so every ancestor of s is current too.
func (sm *StateMachine) IsInState(s State) bool {
	return s.sm == sm && s.IsCurrent()
}

// AddObserver registers an observer for the whole hierarchy.
func (sm *StateMachine) AddObserver(o Observer) {
	sm.observers.Register(o)
}

// UnregisterAllObservers removes every observer and callback.
func (sm *StateMachine) UnregisterAllObservers() {
	sm.observers.UnregisterAll()
}

// OnTransitionBegin registers a callback invoked before a transition exits its source.
func (sm *StateMachine) OnTransitionBegin(fn func(TransitionNotification)) {
	sm.AddObserver(ObserverFuncs{OnTransitionBegin: fn})
}

// OnTransitionFinished registers a callback invoked after a transition entered
// its destination.
func (sm *StateMachine) OnTransitionFinished(fn func(TransitionNotification)) {
	sm.AddObserver(ObserverFuncs{OnTransitionFinished: fn})
}

// OnTransitionNotFound registers a callback invoked when no transition accepts
// an event.
func (sm *StateMachine) OnTransitionNotFound(fn func(NotFoundNotification)) {
	sm.AddObserver(ObserverFuncs{OnTransitionNotFound: fn})
}

// OnEventIgnored registers a callback invoked when an ignored transition
// swallows an event.
func (sm *StateMachine) OnEventIgnored(fn func(NotFoundNotification)) {
	sm.AddObserver(ObserverFuncs{OnEventIgnored: fn})
}

// OnFaulted registers a callback invoked when a handler failure faults the machine.
func (sm *StateMachine) OnFaulted(fn func(FaultNotification)) {
	sm.AddObserver(ObserverFuncs{OnFaulted: fn})
}

// enqueueIfExecuting queues call when the calling goroutine runs the cascade.
// A faulted machine rejects the call instead.
func (sm *StateMachine) enqueueIfExecuting(call queuedCall) (bool, error) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	if !sm.executing || sm.owner != goid.Get() {
		return false, nil
	}
	if sm.fault != nil {
		return true, &MachineFaultedError{Fault: sm.fault}
	}
	sm.queue = append(sm.queue, call)
	return true, nil
}

// ownsCascade reports whether the calling goroutine runs the cascade.
func (sm *StateMachine) ownsCascade() bool {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	return sm.executing && sm.owner == goid.Get()
}

func (sm *StateMachine) resetCount() uint64 {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	return sm.resets
}

// execute runs call, then drains the queue until it is empty. Errors of queued
// calls are returned combined with the error of call.
func (sm *StateMachine) execute(call queuedCall) (bool, error) {
	sm.mutex.Lock()
	if sm.executing {
		sm.mutex.Unlock()
		return false, &InvalidOperationError{Message: fmt.Sprintf(
			"machine '%s' is running a transition on another goroutine; "+
				"concurrent use requires a serializing Synchronizer", sm.Name())}
	}
	sm.executing = true
	sm.owner = goid.Get()
	sm.mutex.Unlock()

	drained := false
	defer func() {
		if drained {
			return
		}
		// A guard or selector panicked.
		sm.mutex.Lock()
		sm.executing = false
		sm.owner = 0
		sm.queue = nil
		sm.mutex.Unlock()
	}()

	ok, err := call()
	err = multierr.Append(err, sm.drain())
	drained = true
	return ok, err
}

// drain runs queued calls in order. It clears the executing flag under the
// same lock that observes the empty queue, so no call is left behind.
func (sm *StateMachine) drain() error {
	var errs error
	for {
		sm.mutex.Lock()
		if len(sm.queue) == 0 || sm.fault != nil {
			sm.queue = nil
			sm.executing = false
			sm.owner = 0
			sm.mutex.Unlock()
			return errs
		}
		call := sm.queue[0]
		sm.queue = sm.queue[1:]
		sm.mutex.Unlock()

		if _, err := call(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
}

func (sm *StateMachine) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "StateMachine { Name = %s, ActiveStates = [", sm.Name())
	for i, s := range sm.activeStatesUnchecked() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.String())
	}
	b.WriteString("] }")
	return b.String()
}

func (sm *StateMachine) activeStatesUnchecked() []State {
	var active []State
	for id := rootID; id != noMachine; {
		cur := sm.machines[id].current
		if cur == noState {
			break
		}
		active = append(active, sm.state(cur))
		id = sm.states[cur].child
	}
	return active
}
