// Package historystore implements the two tick-indexed logs from spec.md
// section 3: a dense, append-mostly vector indexed by SimTick, grown with
// default-constructed (empty) bundles and never shrunk during a session.
// This is a direct generalization of
// original_source/replicon_lockstep/src/commands.rs's
// LockstepGameCommandsReceived/LockstepGameCommandBuffer, which hold
// Vec<LockstepClientCommands> and grow via resize(tick+1, default).
package historystore

import "github.com/lockstep/coordinator/pkg/command"

// Store is a tick-indexed log of command.Bundle. Lookups past the end
// return (nil, false) -- "absent" per spec.md section 3, not an error.
type Store interface {
	// Get returns the bundle stored at tick, or false if tick is past the
	// end of the log.
	Get(tick command.SimTick) (command.Bundle, bool)
	// Put installs bundle at tick, growing the log with empty bundles as
	// needed. Dense never shrinks the log on Put; Bounded may evict its
	// least recently used tick to make room.
	Put(tick command.SimTick, bundle command.Bundle)
	// Len reports the number of ticks currently populated (including gaps
	// filled with empty bundles).
	Len() int
	// Reset clears the log, performed on every Starting->Running transition
	// per spec.md section 4.1.
	Reset()
}

// Dense is the default Store: a plain slice indexed directly by SimTick,
// correct and cheap because ticks start at 0 and grow monotonically (spec.md
// section 9's design note "Dense tick-indexed logs").
type Dense struct {
	ticks []command.Bundle
}

// NewDense returns an empty Dense store.
func NewDense() *Dense {
	return &Dense{}
}

// Get implements Store.
func (d *Dense) Get(tick command.SimTick) (command.Bundle, bool) {
	if int(tick) >= len(d.ticks) {
		return nil, false
	}
	return d.ticks[tick], true
}

// Put implements Store.
func (d *Dense) Put(tick command.SimTick, bundle command.Bundle) {
	d.growTo(tick)
	d.ticks[tick] = bundle
}

// growTo extends the log with empty bundles so index tick is addressable,
// mirroring LockstepGameCommandsReceived::resize.
func (d *Dense) growTo(tick command.SimTick) {
	for command.SimTick(len(d.ticks)) <= tick {
		d.ticks = append(d.ticks, command.NewBundle())
	}
}

// Len implements Store.
func (d *Dense) Len() int {
	return len(d.ticks)
}

// Reset clears the log back to empty, performed on every Starting->Running
// transition per spec.md section 4.1.
func (d *Dense) Reset() {
	d.ticks = nil
}
