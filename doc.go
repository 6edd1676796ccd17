// Package statemech provides an embeddable hierarchical state machine for Go.
//
// A machine is built from states, events and transitions. Any state may own a
// child machine which becomes active when the state is entered and inactive when
// it is exited, so a single root can model several nesting levels. The engine
// supports:
//
//   - Normal, inner self, dynamic, forced and ignored transitions
//   - Guards and per-state transition hooks
//   - Entry and exit handlers on states and on groups of states
//   - Events carrying a typed payload
//   - Reentrant firing from handlers (queued and drained in order)
//   - Fault latching when a handler fails, cleared by Reset
//   - A string snapshot format for persisting the current state
//
// # Basic Usage
//
// Create a root machine and its states:
//
//	sm := statemech.New("door")
//	closed := sm.CreateInitialState("Closed")
//	open := sm.CreateState("Open")
//
// Declare events and transitions:
//
//	push := statemech.NewEvent("Push")
//	closed.TransitionOn(push).To(open)
//	open.TransitionOn(push).To(closed)
//
// Fire events:
//
//	err := push.Fire()
//
// # Child Machines
//
// A child machine is activated at its initial state whenever its parent state is
// entered:
//
//	child := open.CreateChildMachine("swing")
//	child.CreateInitialState("Swinging")
//
// Events are resolved from the innermost active machine outward, so a child
// transition for an event wins over a transition of its parent state.
//
// # Thread Safety
//
// The engine is synchronous and assumes a single caller unless a Synchronizer is
// supplied with WithSynchronizer. Only calls made on the goroutine running a
// transition are queued; a handler that waits for another goroutine firing on
// the same machine deadlocks under a serializing Synchronizer.
//
// # Graph Generation
//
// Export to DOT or Mermaid format:
//
//	import "github.com/atlekbai/statemech/graph"
//	dot := graph.UmlDotGraph(sm.Info())
//
// # Persistence and Telemetry
//
// The store/bboltstore and store/sqlstore packages keep snapshots by key. The
// telemetry/prometheus and telemetry/otel packages provide observers exporting
// metrics and spans; register them with AddObserver or WithObserver.
package statemech
