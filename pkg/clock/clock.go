// Package clock owns the two monotonic counters the lockstep core mutates
// from inside the scheduler context: the logical SimTick and the
// per-session SimulationID allocator. Both are grounded on
// original_source/replicon_lockstep/src/simulation.rs's SimulationTick
// resource, generalized to a struct instead of a bare ECS resource so
// multiple concurrent sessions in one process each get their own counters
// (spec.md section 9: "scope the counter to the session").
package clock

import "github.com/lockstep/coordinator/pkg/command"

// Clock tracks the authoritative SimTick for one session.
type Clock struct {
	tick command.SimTick
}

// Tick returns the current SimTick.
func (c *Clock) Tick() command.SimTick {
	return c.tick
}

// Advance moves the clock forward by one tick and returns the new value.
func (c *Clock) Advance() command.SimTick {
	c.tick++
	return c.tick
}

// Set forces the clock to an explicit tick, used when a client installs a
// tick received from the host (spec.md section 4.3) or when a session
// resets on Starting->Running.
func (c *Clock) Set(t command.SimTick) {
	c.tick = t
}

// Reset returns the clock to tick 0, as happens on every Starting->Running
// transition (spec.md section 4.1).
func (c *Clock) Reset() {
	c.tick = 0
}

// SimulationIDAllocator draws monotonically increasing SimulationIDs
// starting at 1. Because every peer executes the same command sequence in
// the same order, running this allocator identically on every peer keeps
// the counters identical across peers -- the determinism contract from
// spec.md section 3. It is NOT safe for concurrent use from multiple
// goroutines; it is owned by the single scheduler context per spec.md
// section 5.
type SimulationIDAllocator struct {
	next command.SimulationID
}

// NewSimulationIDAllocator returns an allocator starting at 1.
func NewSimulationIDAllocator() *SimulationIDAllocator {
	return &SimulationIDAllocator{next: 1}
}

// Allocate draws the next SimulationID.
func (a *SimulationIDAllocator) Allocate() command.SimulationID {
	id := a.next
	a.next++
	return id
}

// Reset returns the allocator to its initial state, performed on every
// Starting->Running transition alongside the tick reset.
func (a *SimulationIDAllocator) Reset() {
	a.next = 1
}
