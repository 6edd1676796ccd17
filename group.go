package statemech

import (
	"slices"
)

// Group is a named set of states sharing entry and exit handlers. The entry
// handler runs when a transition moves from a state outside the group to a
// member, the exit handler when it moves from a member to a state outside it.
type Group struct {
	name    string
	members []State

	entry GroupHandler
	exit  GroupHandler
}

// NewGroup creates an empty group.
func NewGroup(name string) *Group {
	return &Group{name: name}
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// AddStates adds states to the group. Adding a member twice has no effect.
func (g *Group) AddStates(states ...State) *Group {
	for _, s := range states {
		if g.Contains(s) {
			continue
		}
		g.members = append(g.members, s)
		rec := s.rec()
		rec.groups = append(rec.groups, g)
	}
	return g
}

// OnEntry sets the handler run when the group becomes current.
func (g *Group) OnEntry(h GroupHandler) *Group {
	g.entry = h
	return g
}

// OnExit sets the handler run when the group stops being current.
func (g *Group) OnExit(h GroupHandler) *Group {
	g.exit = h
	return g
}

// Members returns the member states in insertion order.
func (g *Group) Members() []State {
	return append([]State(nil), g.members...)
}

// Contains reports whether s is a member.
func (g *Group) Contains(s State) bool {
	return slices.Contains(g.members, s)
}

// IsCurrent reports whether any member is current.
func (g *Group) IsCurrent() bool {
	return slices.ContainsFunc(g.members, State.IsCurrent)
}

func (g *Group) String() string {
	return g.name
}
