package graph

import (
	"strings"
)

// Style defines the interface for formatting state graphs.
type Style interface {
	// GetPrefix returns the text that starts a new graph.
	GetPrefix() string

	// GetInitialTransition returns the text for the root initial state transition.
	GetInitialTransition(initialState *State) string

	// FormatOneState formats a single state.
	FormatOneState(state *State) string

	// FormatOneCluster formats a state owning a child machine, and the child
	// machine's states.
	FormatOneCluster(superState *SuperState) string

	// FormatOneDecisionNode formats a decision node.
	FormatOneDecisionNode(nodeName, label string) string

	// FormatAllTransitions formats all transitions.
	FormatAllTransitions(transitions []*Transition, decisions []*Decision) []string

	// FormatOneTransition formats a single transition.
	FormatOneTransition(
		sourceNodeName, trigger string,
		actions []string,
		destinationNodeName string,
		guards []string,
	) string
}

// FormatTransitions is a helper that formats all transitions using the given style.
func FormatTransitions(style Style, transitions []*Transition) []string {
	var lines []string

	for _, transit := range transitions {
		line := formatSingleTransition(style, transit)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

func formatSingleTransition(style Style, transit *Transition) string {
	dest := transit.destinationNodeName()
	if dest == "" {
		return ""
	}

	trigger := transit.Trigger.String()
	var actions []string
	switch {
	case transit.Ignored:
		trigger += " (ignored)"
	case !transit.ExecuteEntryExitActions:
		trigger += " (inner)"
		actions = transit.Actions
	default:
		actions = transit.Actions
	}

	return style.FormatOneTransition(
		transit.SourceState.NodeName,
		trigger,
		actions,
		dest,
		transit.Guards,
	)
}

// formatLabel joins a trigger, its actions and its guards the UML way:
// "trigger / action [guard]".
func formatLabel(trigger string, actions, guards []string) string {
	var sb strings.Builder
	sb.WriteString(trigger)
	if len(actions) > 0 {
		sb.WriteString(" / ")
		sb.WriteString(strings.Join(actions, ", "))
	}
	for _, info := range guards {
		sb.WriteString(" [")
		sb.WriteString(info)
		sb.WriteString("]")
	}
	return sb.String()
}
