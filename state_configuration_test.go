package statemech_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/statemech"
)

func TestConfiguration_InitialStateTwice(t *testing.T) {
	sm := statemech.New("test")
	sm.CreateInitialState("A")
	requireConfigurationPanic(t, func() {
		sm.CreateInitialState("B")
	})
}

func TestConfiguration_TransitionAcrossMachines(t *testing.T) {
	sm := statemech.New("root")
	p := sm.CreateInitialState("P")
	child := p.CreateChildMachine("child")
	c1 := child.CreateInitialState("C1")
	ev := statemech.NewEvent("go")

	requireConfigurationPanic(t, func() {
		p.TransitionOn(ev).To(c1)
	})
	requireConfigurationPanic(t, func() {
		p.TransitionOn(ev).To(statemech.State{})
	})
}

func TestConfiguration_EventBinding(t *testing.T) {
	sm := statemech.New("root")
	p := sm.CreateInitialState("P")
	q := sm.CreateState("Q")
	child := p.CreateChildMachine("child")
	c1 := child.CreateInitialState("C1")
	c2 := child.CreateState("C2")

	down := statemech.NewEvent("down")
	p.TransitionOn(down).To(q)
	// The child is a descendant of the binding machine.
	c1.TransitionOn(down).To(c2)

	bound, ok := down.Machine()
	require.True(t, ok)
	assert.Equal(t, sm.Machine, bound)

	up := statemech.NewEvent("up")
	c1.TransitionOn(up).To(c2)
	requireConfigurationPanic(t, func() {
		p.TransitionOn(up).To(q)
	})

	other := statemech.New("other")
	x := other.CreateInitialState("X")
	requireConfigurationPanic(t, func() {
		x.TransitionOn(down).To(x)
	})
}

func TestConfiguration_IgnoreThenTransition(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	b := sm.CreateState("B")
	ev := statemech.NewEvent("go")
	a.Ignore(ev)

	requireConfigurationPanic(t, func() { a.TransitionOn(ev).To(b) })
	requireConfigurationPanic(t, func() { a.InnerSelfTransitionOn(ev) })
	requireConfigurationPanic(t, func() { a.Ignore(ev) })
	requireConfigurationPanic(t, func() {
		a.TransitionOn(ev).ToDynamic(func(statemech.DynamicSelectorInfo) (statemech.State, bool) {
			return b, true
		})
	})

	// Other states and events are unaffected.
	b.TransitionOn(ev).To(a)
	other := statemech.NewEvent("other")
	a.TransitionOn(other).To(b)
}

func TestConfiguration_IgnoredTransitionRejectsCallbacks(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	ev := statemech.NewEvent("go")
	a.Ignore(ev)

	ignored := a.Transitions()[0]
	assert.Equal(t, statemech.KindIgnored, ignored.Kind())
	requireConfigurationPanic(t, func() {
		ignored.WithGuard(statemech.Predicate(func(statemech.TransitionInfo) bool { return true }))
	})
	requireConfigurationPanic(t, func() {
		ignored.WithHandler(func(statemech.TransitionInfo) error { return nil })
	})
}

func TestConfiguration_ChildMachineTwice(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	a.CreateChildMachine("one")
	requireConfigurationPanic(t, func() {
		a.CreateChildMachine("two")
	})
}

func TestConfiguration_DynamicRequiresSelector(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	requireConfigurationPanic(t, func() {
		a.TransitionOn(statemech.NewEvent("go")).ToDynamic(nil)
	})
}

func TestConfiguration_TransitionAccessors(t *testing.T) {
	sm := statemech.New("test")
	a := sm.CreateInitialState("A")
	b := sm.CreateState("B")
	ev := statemech.NewEvent("go")
	tr := a.TransitionOn(ev).To(b).WithGuard(statemech.Predicate(func(statemech.TransitionInfo) bool { return true }))

	assert.Equal(t, statemech.KindNormal, tr.Kind())
	assert.Equal(t, a, tr.From())
	to, ok := tr.To()
	require.True(t, ok)
	assert.Equal(t, b, to)
	assert.Same(t, ev, tr.Event())
	assert.True(t, tr.HasGuard())
	assert.False(t, tr.HasHandler())
	assert.Equal(t, "A -> B on go (normal)", tr.String())

	dyn := b.TransitionOn(ev).ToDynamic(func(statemech.DynamicSelectorInfo) (statemech.State, bool) {
		return a, true
	})
	_, ok = dyn.To()
	assert.False(t, ok)
	assert.Equal(t, "B -> ? on go (dynamic)", dyn.String())
}
