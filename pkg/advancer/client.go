package advancer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/events"
)

// Client ingests ServerSendCommands broadcasts, per spec.md section 4.3's
// client-ingestion steps: install the bundle and advance the local SimTick
// (emitting TickUpdate). Emitting the next heartbeat submission for that
// tick is left to the caller.
type Client struct {
	clock     Clock
	log       *zap.Logger
	eventSink events.Sink
	lastTick  command.SimTick
	primed    bool
}

// NewClient returns a Client bound to the given clock and event sink.
func NewClient(clk Clock, sink events.Sink, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{clock: clk, log: logger, eventSink: sink}
}

// Reset clears sequence tracking, performed on a Starting->Running
// transition alongside the clock reset.
func (c *Client) Reset() {
	c.lastTick = 0
	c.primed = false
}

// Ingest handles one ServerSendCommands{tick, bundle} arrival. It enforces
// spec.md section 4.3's strict sequencing: the received tick must equal
// last+1, or be the first tick after a reset. Any other relationship is a
// fatal protocol violation -- the ordered channel is assumed to guarantee
// this can't happen in a well-behaved transport, so a violation here means
// either a transport bug or deliberate tampering, and Ingest reports it
// rather than silently resyncing.
func (c *Client) Ingest(tick command.SimTick, bundle command.Bundle) error {
	if c.primed && tick != c.lastTick+1 {
		err := fmt.Errorf("advancer: protocol violation: received tick %d, expected %d", tick, c.lastTick+1)
		c.log.Error(err.Error())
		if c.eventSink != nil {
			c.eventSink.OnSessionFault(events.SessionFault{Reason: err})
		}
		return err
	}

	c.clock.Set(tick)
	c.lastTick = tick
	c.primed = true

	if c.eventSink != nil {
		c.eventSink.OnTickUpdate(events.TickUpdate{Tick: tick, Bundle: bundle})
	}
	return nil
}
