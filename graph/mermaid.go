package graph

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/atlekbai/statemech"
)

// MermaidGraphDirection specifies the direction of the Mermaid graph.
type MermaidGraphDirection int

const (
	// TopToBottom flows from top to bottom.
	TopToBottom MermaidGraphDirection = iota
	// BottomToTop flows from bottom to top.
	BottomToTop
	// LeftToRight flows from left to right.
	LeftToRight
	// RightToLeft flows from right to left.
	RightToLeft
)

// MermaidGraphStyle generates Mermaid graphs.
type MermaidGraphStyle struct {
	graph     *StateGraph
	direction *MermaidGraphDirection

	// sanitized maps node names to Mermaid identifiers.
	sanitized map[string]string
}

// NewMermaidGraphStyle creates a new Mermaid graph style.
func NewMermaidGraphStyle(graph *StateGraph, direction *MermaidGraphDirection) *MermaidGraphStyle {
	return &MermaidGraphStyle{
		graph:     graph,
		direction: direction,
	}
}

// GetPrefix returns the text that starts a new Mermaid graph.
func (s *MermaidGraphStyle) GetPrefix() string {
	s.buildSanitizedNames()

	var sb strings.Builder
	sb.WriteString("stateDiagram-v2")

	if s.direction != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("\tdirection %s", getDirectionCode(*s.direction)))
	}

	// Aliases for states whose identifier differs from their display name.
	nodes := make([]string, 0, len(s.sanitized))
	for node := range s.sanitized {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		state := s.graph.States[node]
		if id := s.sanitized[node]; id != state.StateName {
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("\t%s : %s", id, state.StateName))
		}
	}

	return sb.String()
}

// FormatOneCluster formats a composite state.
func (s *MermaidGraphStyle) FormatOneCluster(superState *SuperState) string {
	return "\n" + s.formatCluster(superState, "\t")
}

func (s *MermaidGraphStyle) formatCluster(superState *SuperState, indent string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%sstate %s {\n", indent, s.getSanitizedStateName(superState.NodeName)))

	if superState.InitialState != nil {
		sb.WriteString(fmt.Sprintf("%s\t[*] --> %s\n", indent, s.getSanitizedStateName(superState.InitialState.NodeName)))
	}
	for _, subState := range superState.SubStates {
		if subState.Cluster != nil {
			sb.WriteString(s.formatCluster(subState.Cluster, indent+"\t"))
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("%s\t%s\n", indent, s.getSanitizedStateName(subState.NodeName)))
	}

	sb.WriteString(indent)
	sb.WriteString("}")
	return sb.String()
}

// FormatOneState formats a single state (Mermaid doesn't need explicit state definitions).
func (s *MermaidGraphStyle) FormatOneState(_ *State) string {
	return ""
}

// FormatOneDecisionNode formats a decision node.
func (s *MermaidGraphStyle) FormatOneDecisionNode(nodeName, _ string) string {
	return fmt.Sprintf("\n\tstate %s <<choice>>", nodeName)
}

// FormatAllTransitions formats all transitions.
func (s *MermaidGraphStyle) FormatAllTransitions(
	transitions []*Transition,
	_ []*Decision,
) []string {
	return FormatTransitions(s, transitions)
}

// FormatOneTransition formats a single transition.
func (s *MermaidGraphStyle) FormatOneTransition(
	sourceNodeName, trigger string,
	actions []string,
	destinationNodeName string,
	guards []string,
) string {
	return fmt.Sprintf("\t%s --> %s : %s",
		s.getSanitizedStateName(sourceNodeName),
		s.getSanitizedStateName(destinationNodeName),
		formatLabel(trigger, actions, guards))
}

// GetInitialTransition returns the text for the initial state transition.
func (s *MermaidGraphStyle) GetInitialTransition(initialState *State) string {
	if initialState == nil {
		return ""
	}
	return fmt.Sprintf("\n[*] --> %s", s.getSanitizedStateName(initialState.NodeName))
}

// buildSanitizedNames assigns every node a unique Mermaid identifier.
func (s *MermaidGraphStyle) buildSanitizedNames() {
	if s.sanitized != nil {
		return
	}
	s.sanitized = make(map[string]string, len(s.graph.States))

	nodes := make([]string, 0, len(s.graph.States))
	for node := range s.graph.States {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	taken := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		name := sanitizeStateName(node)
		candidate := name
		for count := 1; taken[candidate]; count++ {
			candidate = fmt.Sprintf("%s_%d", name, count)
		}
		taken[candidate] = true
		s.sanitized[node] = candidate
	}
}

// getSanitizedStateName returns the Mermaid identifier for a node.
func (s *MermaidGraphStyle) getSanitizedStateName(nodeName string) string {
	if id, ok := s.sanitized[nodeName]; ok {
		return id
	}
	return nodeName
}

// sanitizeStateName removes characters that would cause invalid Mermaid graphs.
func sanitizeStateName(name string) string {
	var result strings.Builder
	for _, c := range name {
		if !unicode.IsSpace(c) && c != ':' && c != '-' {
			result.WriteRune(c)
		}
	}
	return result.String()
}

// getDirectionCode returns the Mermaid direction code.
func getDirectionCode(direction MermaidGraphDirection) string {
	switch direction {
	case TopToBottom:
		return "TB"
	case BottomToTop:
		return "BT"
	case LeftToRight:
		return "LR"
	case RightToLeft:
		return "RL"
	default:
		return "TB"
	}
}

// MermaidGraph generates a Mermaid graph from machine info.
func MermaidGraph(machineInfo *statemech.MachineInfo, direction *MermaidGraphDirection) string {
	graph := NewStateGraph(machineInfo)
	return graph.ToGraph(NewMermaidGraphStyle(graph, direction))
}
