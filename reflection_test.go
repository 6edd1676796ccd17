package statemech_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/statemech"
)

func isStaffed(statemech.TransitionInfo) (bool, error) {
	return true, nil
}

func openDoors(statemech.TransitionInfo) error {
	return nil
}

func chooseFloor(statemech.DynamicSelectorInfo) (statemech.State, bool) {
	return statemech.State{}, false
}

func TestInfo(t *testing.T) {
	sm := statemech.New("elevator")
	idle := sm.CreateInitialState("Idle")
	moving := sm.CreateState("Moving")
	floors := moving.CreateChildMachine("floors")
	floors.CreateInitialState("Ground")
	floors.CreateState("Roof")

	call := statemech.NewEvent("call")
	arrive := statemech.NewEvent("arrive")
	route := statemech.NewEvent("route")
	level := statemech.NewEventOf[int]("level")
	ping := statemech.NewEvent("ping")

	idle.TransitionOn(call).To(moving).WithGuard(isStaffed)
	idle.TransitionOn(route).ToDynamic(chooseFloor)
	idle.Ignore(ping)
	moving.TransitionOn(arrive).To(idle).WithHandler(openDoors)
	moving.InnerSelfTransitionOn(level)
	moving.OnEntry(openDoors).OnExit(func(statemech.TransitionInfo) error { return nil })
	statemech.NewGroup("Busy").AddStates(moving).OnEntry(func(statemech.GroupHandlerInfo) error { return nil })

	info := sm.Info()
	assert.Equal(t, "elevator", info.Name)
	assert.Nil(t, info.Parent)
	require.Len(t, info.States, 2)
	assert.Same(t, info.States[0], info.InitialState)

	idleInfo := info.States[0]
	assert.Equal(t, "Idle", idleInfo.Name)
	assert.Equal(t, "Idle", idleInfo.Identifier)
	assert.Same(t, info, idleInfo.Machine)
	assert.Nil(t, idleInfo.ChildMachine)

	require.Len(t, idleInfo.FixedTransitions, 1)
	callInfo := idleInfo.FixedTransitions[0]
	assert.Equal(t, "call", callInfo.Event.Name)
	assert.Same(t, info.States[1], callInfo.Destination)
	assert.Equal(t, "isStaffed", callInfo.Guard.Description())
	assert.False(t, callInfo.Handler.IsSet())
	assert.False(t, callInfo.IsInner)

	require.Len(t, idleInfo.DynamicTransitions, 1)
	assert.Equal(t, "chooseFloor", idleInfo.DynamicTransitions[0].Selector.Description())
	assert.Equal(t, []statemech.EventInfo{{Name: "ping"}}, idleInfo.IgnoredEvents)

	movingInfo := info.States[1]
	assert.Equal(t, []string{"Busy"}, movingInfo.Groups)
	assert.Equal(t, "openDoors", movingInfo.EntryHandler.Description())
	assert.Equal(t, statemech.DefaultFunctionDescription, movingInfo.ExitHandler.Description())
	require.Len(t, movingInfo.FixedTransitions, 2)
	assert.Equal(t, "openDoors", movingInfo.FixedTransitions[0].Handler.Description())
	assert.True(t, movingInfo.FixedTransitions[1].IsInner)
	assert.Equal(t, "level(int)", movingInfo.FixedTransitions[1].Event.String())

	child := movingInfo.ChildMachine
	require.NotNil(t, child)
	assert.Equal(t, "floors", child.Name)
	assert.Same(t, movingInfo, child.Parent)
	require.Len(t, child.States, 2)
	assert.Equal(t, "Ground", child.InitialState.Name)

	require.Len(t, info.Groups, 1)
	busy := info.Groups[0]
	assert.Equal(t, "Busy", busy.Name)
	assert.Equal(t, []*statemech.StateInfo{movingInfo}, busy.Members)
	assert.True(t, busy.EntryHandler.IsSet())
	assert.False(t, busy.ExitHandler.IsSet())
}

func TestInvocationInfo_Description(t *testing.T) {
	assert.Equal(t, statemech.NullString, statemech.InvocationInfo{}.Description())
	assert.Equal(t, "check", statemech.InvocationInfo{MethodName: "check"}.Description())
	assert.Equal(t, statemech.DefaultFunctionDescription,
		statemech.InvocationInfo{MethodName: "TestInfo.func1"}.Description())
}
