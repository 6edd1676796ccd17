package statemech

import (
	"reflect"
	"runtime"
	"strings"
)

// DefaultFunctionDescription is the text returned for anonymous functions.
var DefaultFunctionDescription = "Function"

// NullString is the string representation of a null value.
const NullString = "<null>"

// InvocationInfo describes a callback: a guard, handler or selector.
type InvocationInfo struct {
	// MethodName is the name of the function, empty when none was set.
	MethodName string
}

// describeFunc creates InvocationInfo from a function.
func describeFunc(fn any) InvocationInfo {
	return InvocationInfo{MethodName: getFunctionName(fn)}
}

// Description returns the function name, or DefaultFunctionDescription for
// closures and methods.
func (i InvocationInfo) Description() string {
	if i.MethodName == "" {
		return NullString
	}
	if strings.Contains(i.MethodName, "func") || strings.Contains(i.MethodName, ".") {
		return DefaultFunctionDescription
	}
	return i.MethodName
}

// IsSet reports whether the callback exists.
func (i InvocationInfo) IsSet() bool {
	return i.MethodName != ""
}

// getFunctionName returns the name of a function.
func getFunctionName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	name := runtime.FuncForPC(v.Pointer()).Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	// Strip the package qualifier of top level functions.
	if idx := strings.Index(name, "."); idx >= 0 && !strings.Contains(name[idx+1:], ".") {
		name = name[idx+1:]
	}
	return name
}

// MachineInfo exposes the states, transitions and groups of a machine and,
// through its states, of every child machine.
type MachineInfo struct {
	Name string

	// Parent is the state owning the machine, nil for the root.
	Parent *StateInfo

	// InitialState is nil when the machine has none.
	InitialState *StateInfo

	// States are in registration order.
	States []*StateInfo

	// Groups contains every group with a member in this machine.
	Groups []*GroupInfo
}

// StateInfo describes a state through the reflection API.
type StateInfo struct {
	Name string

	// Identifier is the snapshot identifier.
	Identifier string

	// Machine is the machine owning the state.
	Machine *MachineInfo

	// ChildMachine is nil when the state has none.
	ChildMachine *MachineInfo

	// Groups lists group names in membership order.
	Groups []string

	EntryHandler InvocationInfo
	ExitHandler  InvocationInfo

	FixedTransitions   []FixedTransitionInfo
	DynamicTransitions []DynamicTransitionInfo
	IgnoredEvents      []EventInfo
}

func (s *StateInfo) String() string {
	if s == nil {
		return NullString
	}
	return s.Name
}

// EventInfo describes an event.
type EventInfo struct {
	Name string

	// PayloadType is empty for untyped events.
	PayloadType string
}

func (e EventInfo) String() string {
	if e.PayloadType == "" {
		return e.Name
	}
	return e.Name + "(" + e.PayloadType + ")"
}

// FixedTransitionInfo describes a transition with a known destination.
type FixedTransitionInfo struct {
	Event       EventInfo
	Destination *StateInfo
	Guard       InvocationInfo
	Handler     InvocationInfo

	// IsInner is set for inner self transitions.
	IsInner bool
}

// DynamicTransitionInfo describes a transition whose destination is chosen
// when the event fires.
type DynamicTransitionInfo struct {
	Event    EventInfo
	Selector InvocationInfo
	Guard    InvocationInfo
	Handler  InvocationInfo
}

// GroupInfo describes a group.
type GroupInfo struct {
	Name         string
	Members      []*StateInfo
	EntryHandler InvocationInfo
	ExitHandler  InvocationInfo
}

// Info returns the structure of the whole hierarchy.
func (sm *StateMachine) Info() *MachineInfo {
	infos := make(map[stateID]*StateInfo, len(sm.states))
	root := sm.machineInfo(rootID, nil, infos)
	sm.linkTransitions(infos)
	return root
}

func (sm *StateMachine) machineInfo(id machineID, parent *StateInfo, infos map[stateID]*StateInfo) *MachineInfo {
	rec := sm.machines[id]
	mi := &MachineInfo{Name: rec.name, Parent: parent}
	idents := sm.identifiers(id)

	groups := map[*Group]*GroupInfo{}
	for _, sid := range rec.states {
		srec := sm.states[sid]
		si := &StateInfo{
			Name:         srec.name,
			Identifier:   idents[sid],
			Machine:      mi,
			EntryHandler: describeFunc(srec.entry),
			ExitHandler:  describeFunc(srec.exit),
		}
		infos[sid] = si
		mi.States = append(mi.States, si)
		if sid == rec.initial {
			mi.InitialState = si
		}

		for _, g := range srec.groups {
			si.Groups = append(si.Groups, g.name)
			gi, ok := groups[g]
			if !ok {
				gi = &GroupInfo{
					Name:         g.name,
					EntryHandler: describeFunc(g.entry),
					ExitHandler:  describeFunc(g.exit),
				}
				groups[g] = gi
				mi.Groups = append(mi.Groups, gi)
			}
			gi.Members = append(gi.Members, si)
		}

		if srec.child != noMachine {
			si.ChildMachine = sm.machineInfo(srec.child, si, infos)
		}
	}
	return mi
}

func (sm *StateMachine) linkTransitions(infos map[stateID]*StateInfo) {
	for i, rec := range sm.states {
		si := infos[stateID(i)]
		for _, t := range rec.transitions {
			ev := t.event.info()
			switch t.kind {
			case KindIgnored:
				si.IgnoredEvents = append(si.IgnoredEvents, ev)
			case KindDynamic:
				si.DynamicTransitions = append(si.DynamicTransitions, DynamicTransitionInfo{
					Event:    ev,
					Selector: describeFunc(t.selector),
					Guard:    describeFunc(t.guard),
					Handler:  describeFunc(t.handler),
				})
			default:
				si.FixedTransitions = append(si.FixedTransitions, FixedTransitionInfo{
					Event:       ev,
					Destination: infos[t.to.id],
					Guard:       describeFunc(t.guard),
					Handler:     describeFunc(t.handler),
					IsInner:     t.kind == KindInner,
				})
			}
		}
	}
}

func (e *Event) info() EventInfo {
	ei := EventInfo{Name: e.name}
	if e.payloadType != nil {
		ei.PayloadType = e.payloadType.String()
	}
	return ei
}
