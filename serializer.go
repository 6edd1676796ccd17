package statemech

import (
	"fmt"
	"regexp"
	"strings"
)

// SnapshotVersion prefixes every serialized snapshot.
const SnapshotVersion = "1"

var identifierSeparators = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Serialize returns the current state of every active machine as
// "1:root/child/...", using state identifiers.
func (sm *StateMachine) Serialize() (string, error) {
	if f := sm.Fault(); f != nil {
		return "", &MachineFaultedError{Fault: f}
	}
	active := sm.activeStatesUnchecked()
	if len(active) == 0 {
		return "", &SerializationError{Message: fmt.Sprintf("machine '%s' has no current state", sm.Name())}
	}
	ids := make([]string, len(active))
	for i, s := range active {
		ids[i] = s.Identifier()
	}
	return SnapshotVersion + ":" + strings.Join(ids, "/"), nil
}

// Deserialize restores a snapshot produced by Serialize on a machine with the
// same structure. States are assigned directly; no handlers run. A child
// machine without an initial state may be omitted from the snapshot.
func (sm *StateMachine) Deserialize(snapshot string) error {
	if f := sm.Fault(); f != nil {
		return &MachineFaultedError{Fault: f}
	}

	version, path, ok := strings.Cut(snapshot, ":")
	if !ok {
		return &SerializationError{Message: fmt.Sprintf("snapshot %q has no version", snapshot)}
	}
	if version != SnapshotVersion {
		return &SerializationError{Message: fmt.Sprintf(
			"unsupported snapshot version %q, expected %q", version, SnapshotVersion)}
	}

	parts := strings.Split(path, "/")
	resolved := make([]stateID, 0, len(parts))
	id := rootID
	for _, part := range parts {
		if id == noMachine {
			return &SerializationError{Message: fmt.Sprintf(
				"snapshot %q has %d levels but the machine has only %d", snapshot, len(parts), len(resolved))}
		}
		sid, ok := sm.lookupIdentifier(id, part)
		if !ok {
			return &SerializationError{Message: fmt.Sprintf(
				"identifier %q matches no state of machine '%s'", part, sm.machines[id].name)}
		}
		resolved = append(resolved, sid)
		id = sm.states[sid].child
	}
	if id != noMachine && sm.machines[id].initial != noState {
		return &SerializationError{Message: fmt.Sprintf(
			"snapshot %q ends before child machine '%s'", snapshot, sm.machines[id].name)}
	}

	for _, m := range sm.machines {
		m.current = noState
	}
	for _, sid := range resolved {
		sm.machines[sm.states[sid].machine].current = sid
	}
	return nil
}

// lookupIdentifier finds the state of machine id with the given identifier.
func (sm *StateMachine) lookupIdentifier(id machineID, ident string) (stateID, bool) {
	idents := sm.identifiers(id)
	for _, sid := range sm.machines[id].states {
		if idents[sid] == ident {
			return sid, true
		}
	}
	return noState, false
}

// identifiers computes the snapshot identifier of every state of machine id.
// Runs of characters outside [A-Za-z0-9] collapse to "-" and repeated
// identifiers get "-2", "-3", ... in registration order, skipping suffixes that
// another state's name already produces.
func (sm *StateMachine) identifiers(id machineID) map[stateID]string {
	m := sm.machines[id]
	bases := make([]string, len(m.states))
	taken := make(map[string]bool, len(m.states))
	for i, sid := range m.states {
		bases[i] = identifierSeparators.ReplaceAllString(sm.states[sid].name, "-")
		taken[bases[i]] = true
	}

	idents := make(map[stateID]string, len(m.states))
	seen := make(map[string]int, len(m.states))
	for i, sid := range m.states {
		base := bases[i]
		seen[base]++
		if seen[base] == 1 {
			idents[sid] = base
			continue
		}
		ident := fmt.Sprintf("%s-%d", base, seen[base])
		for taken[ident] {
			seen[base]++
			ident = fmt.Sprintf("%s-%d", base, seen[base])
		}
		taken[ident] = true
		idents[sid] = ident
	}
	return idents
}
