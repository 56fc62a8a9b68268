// Package coordinator wires simstate, membership, pipeline, advancer,
// historystore and events together behind the single Step() scheduler hook that
// SPEC_FULL.md's supplemented feature 5 calls for. It is the Go-native
// counterpart of original_source/replicon_lockstep's two plugins
// (LockstepConnectionsPlugin, LockstepSimulationPlugin) collapsed into one
// explicit struct, the same way the teacher turns Bevy systems into methods
// on pkg/consensus.Service.
package coordinator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockstep/coordinator/pkg/advancer"
	"github.com/lockstep/coordinator/pkg/clock"
	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/events"
	"github.com/lockstep/coordinator/pkg/historystore"
	"github.com/lockstep/coordinator/pkg/membership"
	"github.com/lockstep/coordinator/pkg/pipeline"
	"github.com/lockstep/coordinator/pkg/simsettings"
	"github.com/lockstep/coordinator/pkg/simstate"
)

// Host is the authoritative session coordinator: host-plus-client mode
// (simsettings.ModeHost) or dedicated-server mode (simsettings.ModeDedicated).
// Every exported method here is called from the single scheduler context
// (spec.md section 5); none of them block.
type Host struct {
	id  uuid.UUID
	cfg simsettings.Config

	state     *simstate.Machine
	members   *membership.Manager
	pipe      *pipeline.Pipeline
	adv       *advancer.Host
	clk       *clock.Clock
	simAlloc  *clock.SimulationIDAllocator
	registry  *command.Registry
	eventSink events.Sink
	log       *zap.Logger

	checkpoint   *historystore.BoltCheckpointer
	ticksSinceCP uint32
}

// NewHost constructs a Host from a fully-resolved simsettings.Config. The
// registry and eventSink are both optional; a nil registry means the host
// never decodes command payloads itself (it only ever routes opaque
// command.Command values), and a nil eventSink means OnStateChanged/
// OnTickUpdate/etc. are simply not delivered anywhere.
func NewHost(cfg simsettings.Config, registry *command.Registry, sink events.Sink, logger *zap.Logger) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	received, outbound := newStores(cfg.Retention)
	pipe := pipeline.New(pipeline.Config{
		TickTimestep:       cfg.Simulation.TickTimestep,
		BaseInputTickDelay: cfg.Simulation.BaseInputTickDelay,
		Received:           received,
		Outbound:           outbound,
		Logger:             logger,
	})

	mode := membership.ModeDedicated
	if cfg.Connection.ServerMode == simsettings.ModeHost {
		mode = membership.ModeHost
	}
	members := membership.NewManager(mode)

	state := simstate.NewMachine()
	clk := &clock.Clock{}

	h := &Host{
		id:       uuid.New(),
		cfg:      cfg,
		state:    state,
		members:  members,
		pipe:     pipe,
		clk:      clk,
		simAlloc: clock.NewSimulationIDAllocator(),
		registry: registry,
		eventSink: sink,
		log:      logger,
	}

	h.adv = advancer.NewHost(advancer.Config{
		TickTimestep:             cfg.Simulation.TickTimestep,
		ConnectionCheckTickDelay: cfg.Simulation.ConnectionCheckTickDelay,
		DisconnectTickThreshold:  cfg.Simulation.DisconnectTickThreshold,
		Clock:                    clk,
		Members:                  members,
		Pipeline:                 pipe,
		State:                    state,
		Logger:                   logger,
		EventSink:                sink,
	})

	if cfg.Retention.CheckpointPath != "" {
		cp, err := historystore.OpenBoltCheckpointer(cfg.Retention.CheckpointPath)
		if err != nil {
			return nil, err
		}
		h.checkpoint = cp
	}

	return h, nil
}

// newStores builds the received/outbound logs per the Retention section:
// bounded LRU stores when TrimReceivedLog is set, dense slices otherwise.
func newStores(r simsettings.Retention) (historystore.Store, historystore.Store) {
	if r.TrimReceivedLog && r.ReceivedLogCapacity > 0 {
		return historystore.NewBounded(r.ReceivedLogCapacity), historystore.NewDense()
	}
	return historystore.NewDense(), historystore.NewDense()
}

// SessionID returns this session's SimulationID-allocator-scoping identity
// (SPEC_FULL.md's "scope the SimulationID allocator per-session" supplement).
func (h *Host) SessionID() uuid.UUID {
	return h.id
}

// State returns the current session lifecycle state.
func (h *Host) State() simstate.State {
	return h.state.Current()
}

// Registry returns the command-type registry this host was built with, or
// nil if none was supplied.
func (h *Host) Registry() *command.Registry {
	return h.registry
}

// ConnectedPeers returns the number of peers currently connected to the
// session. Exposed for metrics.SetConnectedPeers.
func (h *Host) ConnectedPeers() int {
	return h.members.Count()
}

// GateFailStreak returns the host gate's current consecutive-failure
// count. Exposed for metrics.SetGateFailStreak.
func (h *Host) GateFailStreak() uint32 {
	return h.adv.GateFailStreak()
}

// OnClientConnect registers a newly connected peer and, once every expected
// player has joined, advances Connecting->Setup. It is grounded on
// connections.rs's on_client_connect: "if ids.iter().len() ==
// simulation_settings.num_players, broadcast SetSimulationState(Setup)".
func (h *Host) OnClientConnect(peer command.PeerID) {
	h.members.Connect(peer)
	if h.state.Current() == simstate.Connecting && h.members.Count() == int(h.cfg.Simulation.NumPlayers) {
		h.transition(simstate.Setup)
	}
}

// OnClientDisconnect removes a peer from the connected set and emits
// ClientDisconnect. Called both for host-side detected timeouts (normally
// routed through advancer.Host.Step instead) and explicit transport drops.
func (h *Host) OnClientDisconnect(peer command.PeerID) {
	h.members.Disconnect(peer)
	if h.eventSink != nil {
		h.eventSink.OnClientDisconnect(events.ClientDisconnect{Peer: peer})
	}
}

// OnClientReady marks a peer ready during Setup and, once every connected
// peer is ready, starts the simulation. Grounded on connections.rs's
// check_all_clients_ready, with its "panic on disconnect during setup"
// replaced by a SessionFault per SPEC_FULL.md's design note: a panic here
// would crash every co-located session in the same process, not just this
// one.
func (h *Host) OnClientReady(peer command.PeerID) error {
	h.members.MarkReady(peer)
	if h.state.Current() != simstate.Setup {
		return nil
	}
	if h.members.Count() != int(h.cfg.Simulation.NumPlayers) {
		err := fmt.Errorf("coordinator: player(s) disconnected during setup phase")
		h.log.Error(err.Error())
		if h.eventSink != nil {
			h.eventSink.OnSessionFault(events.SessionFault{Reason: err})
		}
		return err
	}
	if !h.members.AllReady() {
		return nil
	}
	h.transition(simstate.Starting)
	h.startSimulation()
	return nil
}

// startSimulation resets the clock, the SimulationID allocator and both
// tick-indexed logs, then enters Running. Grounded on simulation.rs's
// start_simulation, which runs on OnEnter(Starting).
func (h *Host) startSimulation() {
	h.clk.Reset()
	h.simAlloc.Reset()
	h.pipe.Reset()
	h.ticksSinceCP = 0
	h.transition(simstate.Running)
}

// Step runs one scheduler tick: the host gate rule, plus an optional
// checkpoint flush. maxPeerRTT is the worst-case RTT across connected peers,
// supplied by the transport.
func (h *Host) Step(maxPeerRTT time.Duration) {
	h.adv.Step(maxPeerRTT)

	if h.checkpoint == nil || h.cfg.Retention.CheckpointEvery == 0 {
		return
	}
	h.ticksSinceCP++
	if h.ticksSinceCP < h.cfg.Retention.CheckpointEvery {
		return
	}
	h.ticksSinceCP = 0
	tick := h.clk.Tick()
	if err := h.checkpoint.Checkpoint(tick, h.pipe.BroadcastAt(tick)); err != nil {
		h.log.Warn("checkpoint failed", zap.Error(err), zap.Uint32("tick", uint32(tick)))
	}
}

// Submit feeds one ClientSendCommands arrival (already decoded off the
// wire) into the pipeline. rtt is the issuing peer's current measured RTT,
// or pipeline.HostLocalRTT(tickTimestep) for the host-local pseudo-peer.
func (h *Host) Submit(issuingPeer command.PeerID, issuedTick command.SimTick, commands []command.Command, rtt time.Duration) command.SimTick {
	return h.pipe.Submit(issuingPeer, issuedTick, commands, h.clk.Tick(), rtt)
}

// Shutdown releases any held resources (the checkpoint database, if open).
func (h *Host) Shutdown() error {
	if h.checkpoint != nil {
		return h.checkpoint.Close()
	}
	return nil
}

func (h *Host) transition(next simstate.State) {
	old := h.state.Current()
	h.state.Transition(next)
	h.log.Info("session state changed", zap.Stringer("from", old), zap.Stringer("to", next))
	if h.eventSink != nil {
		h.eventSink.OnStateChanged(events.SimulationStateChanged{Old: old, New: next})
	}
}
