package statemech_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/statemech"
)

func failing(statemech.TransitionInfo) error {
	return errBoom
}

func requireFaulted(t *testing.T, sm *statemech.StateMachine, fault *statemech.Fault) {
	t.Helper()
	var faulted *statemech.MachineFaultedError

	_, err := sm.CurrentState()
	require.ErrorAs(t, err, &faulted)
	assert.Same(t, fault, faulted.Fault)

	_, err = sm.ActiveStates()
	require.ErrorAs(t, err, &faulted)
	assert.Same(t, fault, faulted.Fault)

	require.ErrorAs(t, sm.ForceTransition(fault.From, nil, nil), &faulted)
	assert.Same(t, fault, faulted.Fault)
}

func TestFault_ExitHandler(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A").OnExit(failing)
	b := sm.CreateState("B")
	ev := statemech.NewEvent("go")
	a.TransitionOn(ev).To(b)

	var notified *statemech.Fault
	sm.OnFaulted(func(n statemech.FaultNotification) {
		notified = n.Fault
	})

	err := ev.Fire()
	var failed *statemech.TransitionFailedError
	require.ErrorAs(t, err, &failed)
	assert.ErrorIs(t, err, errBoom)

	fault := sm.Fault()
	require.NotNil(t, fault)
	assert.Same(t, fault, failed.Fault)
	assert.Same(t, fault, notified)
	assert.Equal(t, statemech.ComponentExitHandler, fault.Component)
	assert.Equal(t, a, fault.From)
	assert.Equal(t, b, fault.To)
	assert.Same(t, ev, fault.Event)
	assert.Nil(t, fault.Group)
	assert.True(t, sm.IsFaulted())

	requireFaulted(t, sm, fault)

	var faulted *statemech.MachineFaultedError
	require.ErrorAs(t, ev.Fire(), &faulted)
	assert.Same(t, fault, faulted.Fault)
	_, err = ev.TryFire()
	require.ErrorAs(t, err, &faulted)
}

func TestFault_EntryHandler(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	b := sm.CreateState("B").OnEntry(failing)
	ev := statemech.NewEvent("go")
	a.TransitionOn(ev).To(b)

	require.Error(t, ev.Fire())
	fault := sm.Fault()
	require.NotNil(t, fault)
	assert.Equal(t, statemech.ComponentEntryHandler, fault.Component)
	requireFaulted(t, sm, fault)
}

func TestFault_TransitionHandlerDoesNotRollBackExit(t *testing.T) {
	rec := &recorder{}
	sm := statemech.New("test")
	a := sm.CreateInitialState("A").OnExit(rec.handler("exit A"))
	b := sm.CreateState("B").OnEntry(rec.handler("entry B"))
	ev := statemech.NewEvent("go")
	a.TransitionOn(ev).To(b).WithHandler(failing)

	require.Error(t, ev.Fire())
	assert.Equal(t, []string{"exit A"}, rec.calls)
	assert.Equal(t, statemech.ComponentTransitionHandler, sm.Fault().Component)
}

func TestFault_GroupHandlers(t *testing.T) {
	tests := []struct {
		name      string
		configure func(g *statemech.Group)
		member    func(a, b statemech.State) statemech.State
		component statemech.FaultedComponent
	}{
		{
			name: "exit",
			configure: func(g *statemech.Group) {
				g.OnExit(func(statemech.GroupHandlerInfo) error { return errBoom })
			},
			member:    func(a, _ statemech.State) statemech.State { return a },
			component: statemech.ComponentGroupExitHandler,
		},
		{
			name: "entry",
			configure: func(g *statemech.Group) {
				g.OnEntry(func(statemech.GroupHandlerInfo) error { return errBoom })
			},
			member:    func(_, b statemech.State) statemech.State { return b },
			component: statemech.ComponentGroupEntryHandler,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := statemech.New("test")
			a := sm.CreateInitialState("A")
			b := sm.CreateState("B")
			g := statemech.NewGroup("G")
			g.AddStates(tt.member(a, b))
			tt.configure(g)
			ev := statemech.NewEvent("go")
			a.TransitionOn(ev).To(b)

			require.ErrorIs(t, ev.Fire(), errBoom)
			fault := sm.Fault()
			require.NotNil(t, fault)
			assert.Equal(t, tt.component, fault.Component)
			assert.Same(t, g, fault.Group)
		})
	}
}

func TestFault_PanicIsContained(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	b := sm.CreateState("B").OnEntry(func(statemech.TransitionInfo) error {
		panic("entry exploded")
	})
	ev := statemech.NewEvent("go")
	a.TransitionOn(ev).To(b)

	err := ev.Fire()
	var panicErr *statemech.HandlerPanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "entry exploded", panicErr.Value)
	assert.Equal(t, statemech.ComponentEntryHandler, sm.Fault().Component)
}

func TestFault_ResetClears(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	b := sm.CreateState("B").OnEntry(failing)
	ev := statemech.NewEvent("go")
	a.TransitionOn(ev).To(b)

	require.Error(t, ev.Fire())
	require.True(t, sm.IsFaulted())

	sm.Reset()
	assert.False(t, sm.IsFaulted())
	assert.Equal(t, a, currentOf(t, sm.Machine))

	b.OnEntry(nil)
	require.NoError(t, ev.Fire())
	assert.Equal(t, b, currentOf(t, sm.Machine))
}

func TestFault_String(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	b := sm.CreateState("B").OnEntry(failing)
	ev := statemech.NewEvent("go")
	a.TransitionOn(ev).To(b)

	err := ev.Fire()
	require.Error(t, err)
	assert.Equal(t,
		"transition failed: entry handler of transition 'A' -> 'B' on 'go' failed: boom",
		err.Error())
}

func TestFault_FireFromFaultedObserver(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	b := sm.CreateState("B").OnEntry(failing)
	ev := statemech.NewEvent("go")
	back := statemech.NewEvent("back")
	a.TransitionOn(ev).To(b)
	b.TransitionOn(back).To(a)

	var fireErr, forceErr error
	sm.OnFaulted(func(statemech.FaultNotification) {
		fireErr = back.Fire()
		forceErr = sm.ForceTransition(a, nil, nil)
	})

	require.Error(t, ev.Fire())
	fault := sm.Fault()
	require.NotNil(t, fault)

	var faulted *statemech.MachineFaultedError
	require.ErrorAs(t, fireErr, &faulted)
	assert.Same(t, fault, faulted.Fault)
	require.ErrorAs(t, forceErr, &faulted)
	assert.Same(t, fault, faulted.Fault)
}

func TestFault_ReportedBeforePayloadCheck(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	b := sm.CreateState("B").OnEntry(failing)
	ev := statemech.NewEvent("go")
	a.TransitionOn(ev).To(b)

	require.Error(t, ev.Fire())

	var faulted *statemech.MachineFaultedError
	require.ErrorAs(t, sm.Fire(ev, 42), &faulted)
	assert.Same(t, sm.Fault(), faulted.Fault)
	require.ErrorAs(t, sm.ForceTransition(a, ev, 42), &faulted)
}

func TestReset_FromHandlerAbandonsTransition(t *testing.T) {
	sm := statemech.New("root")
	a := sm.CreateInitialState("A")
	p := sm.CreateState("P")
	child := p.CreateChildMachine("child")
	x := child.CreateInitialState("X")
	y := child.CreateState("Y")

	enter := statemech.NewEvent("enter")
	step := statemech.NewEvent("step")
	a.TransitionOn(enter).To(p)

	entered := false
	y.OnEntry(func(statemech.TransitionInfo) error {
		entered = true
		return nil
	})
	x.TransitionOn(step).To(y).WithHandler(func(statemech.TransitionInfo) error {
		sm.Reset()
		return nil
	})

	finished := 0
	sm.OnTransitionFinished(func(statemech.TransitionNotification) { finished++ })

	require.NoError(t, enter.Fire())
	require.Equal(t, 1, finished)
	require.NoError(t, step.Fire())

	active, err := sm.ActiveStates()
	require.NoError(t, err)
	assert.Equal(t, []statemech.State{a}, active)
	assert.False(t, p.IsCurrent())
	assert.False(t, y.IsCurrent())
	assert.False(t, child.IsActive())
	assert.False(t, entered)
	assert.Equal(t, 1, finished)
}

func TestReset_FromEntryHandlerStopsForce(t *testing.T) {
	sm := statemech.New("root")
	a := sm.CreateInitialState("A")
	p := sm.CreateState("P")
	child := p.CreateChildMachine("child")
	child.CreateInitialState("X")
	y := child.CreateState("Y")

	p.OnEntry(func(statemech.TransitionInfo) error {
		sm.Reset()
		return nil
	})

	require.NoError(t, sm.ForceTransition(y, nil, nil))
	assert.True(t, a.IsCurrent())
	assert.False(t, child.IsActive())
}
