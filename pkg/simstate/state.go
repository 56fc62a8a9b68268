// Package simstate implements the session lifecycle state machine from
// spec.md section 4.1. It is grounded on two teacher shapes: the small
// Service interface of pkg/consensus/consensus.go (a thin struct gating
// state behind explicit methods, no framework) and the
// atomic-flag-guarded lifecycle of pkg/consensus/watchdog.go (go.uber.org/atomic
// for the state word, so reads from a metrics/devws goroutine never race
// with scheduler-context writes).
package simstate

import "go.uber.org/atomic"

// State enumerates the session lifecycle states of spec.md section 4.1.
type State uint8

const (
	// None is the initial state before any connection attempt.
	None State = iota
	// Connecting is while peers are joining.
	Connecting
	// Setup is while peers perform local setup (asset loading etc).
	Setup
	// Starting is while resources are initialized for the run.
	Starting
	// Running is the steady-state lockstep loop.
	Running
	// Paused is entered when liveness checks fail past the threshold.
	Paused
	// Reconnecting is a client-local state entered on transport disconnect.
	Reconnecting
	// Ending is terminal; entered from any state on explicit shutdown.
	Ending
)

// String renders a human-readable state name, used in log lines.
func (s State) String() string {
	switch s {
	case None:
		return "None"
	case Connecting:
		return "Connecting"
	case Setup:
		return "Setup"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Reconnecting:
		return "Reconnecting"
	case Ending:
		return "Ending"
	default:
		return "Unknown"
	}
}

// Listener is notified whenever the machine transitions. The host game
// registers one or more of these to receive SimulationStateChanged events
// (spec.md section 6).
type Listener func(old, new State)

// Machine is the authoritative-on-host, replicated-on-client session state
// machine. It never blocks: every transition is a single, bounded call from
// inside the scheduler context (spec.md section 5).
type Machine struct {
	current   atomic.Uint32
	listeners []Listener
}

// NewMachine returns a Machine starting in None.
func NewMachine() *Machine {
	m := &Machine{}
	m.current.Store(uint32(None))
	return m
}

// Current returns the current state. Safe to call from any goroutine (e.g.
// metrics or devws), since state is read via atomic load.
func (m *Machine) Current() State {
	return State(m.current.Load())
}

// OnChange registers a listener invoked synchronously inside Transition.
func (m *Machine) OnChange(l Listener) {
	m.listeners = append(m.listeners, l)
}

// Transition moves the machine to next unconditionally and fires listeners.
// Legality of the transition is the caller's responsibility (simstate
// itself is a mechanism, not a validator) -- mirroring pkg/consensus's thin
// Service, which trusts its caller to drive it correctly.
func (m *Machine) Transition(next State) {
	old := State(m.current.Swap(uint32(next)))
	if old == next {
		return
	}
	for _, l := range m.listeners {
		l(old, next)
	}
}

// CanHostInitiate reports whether the given transition is one the host is
// authoritative for broadcasting, per spec.md section 4.1's transition
// table. Entering Reconnecting returns false: it is client-local. Entering
// Ending returns true from any state, since the host may broadcast a
// shutdown, although a peer may also enter Ending locally without host
// consent.
func CanHostInitiate(from, to State) bool {
	switch {
	case from == Connecting && to == Setup:
		return true
	case from == Setup && to == Starting:
		return true
	case from == Starting && to == Running:
		return true
	case from == Running && to == Paused:
		return true
	case to == Ending:
		return true
	default:
		return false
	}
}
