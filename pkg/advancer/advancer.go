// Package advancer implements the host-side tick gate and client-side tick
// ingestion from spec.md section 4.4. The host half is grounded on
// original_source/replicon_lockstep/src/simulation.rs's tick_server system,
// turned from an ECS system querying resources into a plain struct with a
// Step method, matching how pkg/consensus/watchdog.go turns an async
// block-event loop into an explicit, config-driven service -- except here
// Step is called synchronously once per scheduler tick rather than running
// in its own goroutine, since spec.md section 5 forbids any core operation
// from blocking or suspending.
package advancer

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/events"
	"github.com/lockstep/coordinator/pkg/membership"
	"github.com/lockstep/coordinator/pkg/pipeline"
	"github.com/lockstep/coordinator/pkg/simstate"
)

// Clock is the minimal surface advancer needs from clock.Clock.
type Clock interface {
	Tick() command.SimTick
	Advance() command.SimTick
	Set(command.SimTick)
}

// Config configures a Host advancer.
type Config struct {
	TickTimestep             time.Duration
	ConnectionCheckTickDelay uint32
	DisconnectTickThreshold  uint32

	Clock      Clock
	Members    *membership.Manager
	Pipeline   *pipeline.Pipeline
	State      *simstate.Machine
	Logger     *zap.Logger
	EventSink  events.Sink
}

// Host runs the gate rule from spec.md section 4.4 each scheduler step
// while the session is Running.
type Host struct {
	cfg             Config
	log             *zap.Logger
	disconnectTimer uint32
}

// NewHost returns a Host advancer.
func NewHost(cfg Config) *Host {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{cfg: cfg, log: logger}
}

// GateFailStreak returns the number of consecutive gate evaluations that
// have failed to find every connected peer present, reset to zero on every
// successful advance. Exposed for metrics.SetGateFailStreak.
func (h *Host) GateFailStreak() uint32 {
	return h.disconnectTimer
}

// Step runs one gate evaluation. maxPeerRTT is the maximum RTT across all
// currently connected peers, supplied by the transport; it is the transport
// collaborator's only input to this component (spec.md section 1's "thin
// collaborators"). Step is a no-op unless the session is Running.
func (h *Host) Step(maxPeerRTT time.Duration) {
	if h.cfg.State.Current() != simstate.Running {
		return
	}

	delta := h.lookback(maxPeerRTT)
	current := h.cfg.Clock.Tick()
	var checkTick command.SimTick
	if delta < current {
		checkTick = current - delta
	}

	received := h.cfg.Pipeline.ReceivedAt(checkTick)
	connected := h.cfg.Members.Connected()

	if allPresent(received, connected) {
		h.advance()
		return
	}

	h.disconnectTimer++
	h.log.Debug("gate failed", zap.Uint32("check_tick", uint32(checkTick)), zap.Uint32("streak", h.disconnectTimer))
	if h.disconnectTimer > h.cfg.DisconnectTickThreshold {
		h.disconnectTimer = 0
		old := h.cfg.State.Current()
		h.cfg.State.Transition(simstate.Paused)
		if h.cfg.EventSink != nil {
			h.cfg.EventSink.OnStateChanged(events.SimulationStateChanged{Old: old, New: simstate.Paused})
		}
		for _, peer := range connected {
			if _, ok := received[peer]; !ok {
				h.log.Info("declaring peer disconnected", zap.Uint64("peer", uint64(peer)))
				if h.cfg.EventSink != nil {
					h.cfg.EventSink.OnClientDisconnect(events.ClientDisconnect{Peer: peer})
				}
			}
		}
	}
}

// lookback computes Δ = ceil(max_peer_rtt/2 / tick_timestep) + connection_check_tick_delay.
func (h *Host) lookback(maxPeerRTT time.Duration) command.SimTick {
	halfRTT := maxPeerRTT.Seconds() / 2
	rttTicks := uint32(math.Ceil(halfRTT / h.cfg.TickTimestep.Seconds()))
	return command.SimTick(rttTicks + h.cfg.ConnectionCheckTickDelay)
}

func (h *Host) advance() {
	h.disconnectTimer = 0
	next := h.cfg.Clock.Advance()
	bundle := h.cfg.Pipeline.BroadcastAt(next)
	if h.cfg.EventSink != nil {
		h.cfg.EventSink.OnTickUpdate(events.TickUpdate{Tick: next, Bundle: bundle})
	}
}

// allPresent reports whether every connected peer has a received-log entry
// (even an empty one, which is the heartbeat).
func allPresent(received command.Bundle, connected []command.PeerID) bool {
	for _, peer := range connected {
		if _, ok := received[peer]; !ok {
			return false
		}
	}
	return true
}
