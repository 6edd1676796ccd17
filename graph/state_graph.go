package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atlekbai/statemech"
)

// StateGraph generates a symbolic representation of the graph structure.
type StateGraph struct {
	// InitialState is the initial state of the root machine.
	InitialState *State

	// States contains all states of the hierarchy, indexed by node name.
	States map[string]*State

	// Roots are the states of the root machine in registration order.
	Roots []*State

	// Transitions contains all transitions in the graph.
	Transitions []*Transition

	// Decisions contains all decision nodes in the graph (for dynamic transitions).
	Decisions []*Decision

	byInfo map[*statemech.StateInfo]*State
}

// NewStateGraph creates a new state graph from machine info.
func NewStateGraph(machineInfo *statemech.MachineInfo) *StateGraph {
	sg := &StateGraph{
		States: make(map[string]*State),
		byInfo: make(map[*statemech.StateInfo]*State),
	}

	sg.Roots = sg.addMachine(machineInfo, nil, "")
	if machineInfo.InitialState != nil {
		sg.InitialState = sg.byInfo[machineInfo.InitialState]
	}

	sg.addTransitions(machineInfo)
	return sg
}

// addMachine adds the states of a machine and, recursively, of its child machines.
func (sg *StateGraph) addMachine(machineInfo *statemech.MachineInfo, parent *SuperState, prefix string) []*State {
	states := make([]*State, 0, len(machineInfo.States))
	for _, stateInfo := range machineInfo.States {
		state := &State{
			StateName:  stateInfo.Name,
			NodeName:   prefix + stateInfo.Identifier,
			Groups:     stateInfo.Groups,
			SuperState: parent,
			StateInfo:  stateInfo,
		}
		if stateInfo.EntryHandler.IsSet() {
			state.EntryActions = append(state.EntryActions, stateInfo.EntryHandler.Description())
		}
		if stateInfo.ExitHandler.IsSet() {
			state.ExitActions = append(state.ExitActions, stateInfo.ExitHandler.Description())
		}
		sg.States[state.NodeName] = state
		sg.byInfo[stateInfo] = state
		states = append(states, state)

		if child := stateInfo.ChildMachine; child != nil {
			cluster := &SuperState{State: state, MachineName: child.Name}
			state.Cluster = cluster
			cluster.SubStates = sg.addMachine(child, cluster, state.NodeName+"_")
			if child.InitialState != nil {
				cluster.InitialState = sg.byInfo[child.InitialState]
			}
		}
	}
	return states
}

// addTransitions adds the transitions of every state of the hierarchy.
func (sg *StateGraph) addTransitions(machineInfo *statemech.MachineInfo) {
	for _, stateInfo := range machineInfo.States {
		from := sg.byInfo[stateInfo]

		for _, fix := range stateInfo.FixedTransitions {
			to := sg.byInfo[fix.Destination]
			trans := &Transition{
				Trigger:                 fix.Event,
				SourceState:             from,
				DestinationState:        to,
				Guards:                  describe(fix.Guard),
				Actions:                 describe(fix.Handler),
				ExecuteEntryExitActions: !fix.IsInner,
			}
			sg.link(trans)
		}

		for _, dyn := range stateInfo.DynamicTransitions {
			decide := &Decision{
				NodeName: fmt.Sprintf("Decision%d", len(sg.Decisions)+1),
				Method:   dyn.Selector,
			}
			sg.Decisions = append(sg.Decisions, decide)
			trans := &Transition{
				Trigger:                 dyn.Event,
				SourceState:             from,
				Decision:                decide,
				Guards:                  describe(dyn.Guard),
				Actions:                 describe(dyn.Handler),
				ExecuteEntryExitActions: true,
			}
			decide.Arriving = append(decide.Arriving, trans)
			sg.link(trans)
		}

		for _, ignored := range stateInfo.IgnoredEvents {
			sg.link(&Transition{
				Trigger:          ignored,
				SourceState:      from,
				DestinationState: from,
				Ignored:          true,
			})
		}

		if stateInfo.ChildMachine != nil {
			sg.addTransitions(stateInfo.ChildMachine)
		}
	}
}

func (sg *StateGraph) link(trans *Transition) {
	sg.Transitions = append(sg.Transitions, trans)
	trans.SourceState.Leaving = append(trans.SourceState.Leaving, trans)
	if trans.DestinationState != nil {
		trans.DestinationState.Arriving = append(trans.DestinationState.Arriving, trans)
	}
}

func describe(info statemech.InvocationInfo) []string {
	if !info.IsSet() {
		return nil
	}
	return []string{info.Description()}
}

// ToGraph converts the state graph to a string representation using the specified style.
func (sg *StateGraph) ToGraph(style Style) string {
	var sb strings.Builder

	sb.WriteString(style.GetPrefix())

	// Clusters first, then plain root states, both in registration order.
	for _, state := range sg.Roots {
		if state.Cluster != nil {
			sb.WriteString(style.FormatOneCluster(state.Cluster))
		}
	}
	for _, state := range sg.Roots {
		if state.Cluster == nil {
			sb.WriteString(style.FormatOneState(state))
		}
	}

	for _, dec := range sg.Decisions {
		sb.WriteString(style.FormatOneDecisionNode(dec.NodeName, dec.Method.Description()))
	}

	lines := style.FormatAllTransitions(sg.getSortedTransitions(), sg.Decisions)
	for _, line := range lines {
		sb.WriteString("\n")
		sb.WriteString(line)
	}

	sb.WriteString(style.GetInitialTransition(sg.InitialState))

	return sb.String()
}

// getSortedTransitions returns transitions sorted by source node, then
// destination node, then event, for deterministic output.
func (sg *StateGraph) getSortedTransitions() []*Transition {
	sorted := make([]*Transition, len(sg.Transitions))
	copy(sorted, sg.Transitions)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i], sorted[j]
		if ti.SourceState.NodeName != tj.SourceState.NodeName {
			return ti.SourceState.NodeName < tj.SourceState.NodeName
		}
		if di, dj := ti.destinationNodeName(), tj.destinationNodeName(); di != dj {
			return di < dj
		}
		return ti.Trigger.Name < tj.Trigger.Name
	})
	return sorted
}
