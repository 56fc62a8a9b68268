package coordinator

import (
	"time"

	"go.uber.org/zap"

	"github.com/lockstep/coordinator/pkg/advancer"
	"github.com/lockstep/coordinator/pkg/clock"
	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/events"
	"github.com/lockstep/coordinator/pkg/membership"
	"github.com/lockstep/coordinator/pkg/simstate"
)

// Client is the remote-peer counterpart of Host: it replicates session
// state, resolves its own local peer id, and ingests tick broadcasts.
// Grounded on connections.rs's LocalClient-resolution flow and
// simulation.rs's tick_client.
type Client struct {
	state *simstate.Machine
	clk   *clock.Clock
	adv   *advancer.Client

	handshake membership.LocalIDHandshake
	reconnect *membership.ReconnectTimer

	eventSink events.Sink
	log       *zap.Logger
}

// NewClient returns a Client. reconnectBudget is the wall-clock grace
// period from simsettings.Connection.ReconnectTimer.
func NewClient(reconnectBudget time.Duration, sink events.Sink, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := &clock.Clock{}
	return &Client{
		state:     simstate.NewMachine(),
		clk:       clk,
		adv:       advancer.NewClient(clk, sink, logger),
		reconnect: membership.NewReconnectTimer(reconnectBudget),
		eventSink: sink,
		log:       logger,
	}
}

// State returns the client's locally-replicated session state.
func (c *Client) State() simstate.State {
	return c.state.Current()
}

// LocalPeerID returns the id this client resolved via the LocalIdRequest/
// LocalIdResponse handshake, if any.
func (c *Client) LocalPeerID() (command.PeerID, bool) {
	return c.handshake.Resolved()
}

// OnLocalIDResolved records the host's LocalIdResponse.
func (c *Client) OnLocalIDResolved(id command.PeerID) {
	c.handshake.Resolve(id)
}

// OnStateChanged applies a SetSimulationState broadcast from the host. A
// Starting->Running transition also resets the local clock and advancer
// sequence tracking, mirroring Host.startSimulation.
func (c *Client) OnStateChanged(next simstate.State) {
	old := c.state.Current()
	c.state.Transition(next)
	if next == simstate.Running && old == simstate.Starting {
		c.clk.Reset()
		c.adv.Reset()
	}
	if c.eventSink != nil {
		c.eventSink.OnStateChanged(events.SimulationStateChanged{Old: old, New: next})
	}
}

// Ingest applies one ServerSendCommands broadcast (tick, bundle), already
// decoded off the wire.
func (c *Client) Ingest(tick command.SimTick, bundle command.Bundle) error {
	return c.adv.Ingest(tick, bundle)
}

// OnTransportDropped begins the reconnect grace period, per connections.rs's
// handle_local_client_disconnect: None/Connecting/Ending are ignored,
// Reconnecting is left as is (its timer keeps running), and any other
// state enters Reconnecting and fires ClientReconnect immediately, before
// the timer itself expires.
func (c *Client) OnTransportDropped(now time.Time) {
	switch c.state.Current() {
	case simstate.None, simstate.Connecting, simstate.Ending:
		return
	case simstate.Reconnecting:
		return
	default:
		old := c.state.Current()
		c.state.Transition(simstate.Reconnecting)
		c.reconnect.Start(now)
		if c.eventSink != nil {
			c.eventSink.OnStateChanged(events.SimulationStateChanged{Old: old, New: simstate.Reconnecting})
			c.eventSink.OnClientReconnect(events.ClientReconnect{})
		}
	}
}

// OnTransportRestored cancels a pending reconnect countdown.
func (c *Client) OnTransportRestored() {
	c.reconnect.Stop()
}

// CheckReconnectTimeout declares a fatal disconnect once the reconnect grace
// period elapses while still Reconnecting. Called once per scheduler step;
// never blocks, per spec.md section 5.
func (c *Client) CheckReconnectTimeout(now time.Time, localID command.PeerID) {
	if c.state.Current() != simstate.Reconnecting {
		return
	}
	if !c.reconnect.Expired(now) {
		return
	}
	old := c.state.Current()
	c.state.Transition(simstate.None)
	c.log.Info("client disconnected: reconnect grace period elapsed")
	if c.eventSink != nil {
		c.eventSink.OnStateChanged(events.SimulationStateChanged{Old: old, New: simstate.None})
		c.eventSink.OnClientDisconnect(events.ClientDisconnect{Peer: localID})
	}
}
