// Package pipeline implements the command pipeline from spec.md section
// 4.3: per-tick collection of client submissions into the received-log
// (liveness only), RTT-based computation of each command's execute_tick,
// and insertion into the broadcast-log. It is grounded directly on
// original_source/replicon_lockstep/src/commands.rs's
// receive_commands_server, translated from a Bevy observer into a plain
// method so it can be driven synchronously from the scheduler (spec.md
// section 5).
package pipeline

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/historystore"
)

// Pipeline collects client submissions and prepares the per-tick broadcast.
type Pipeline struct {
	tickTimestep       time.Duration
	baseInputTickDelay uint32

	received historystore.Store // liveness only, keyed by issued_tick
	outbound historystore.Store // keyed by execute_tick, becomes broadcast-log

	log *zap.Logger
}

// Config configures a Pipeline.
type Config struct {
	TickTimestep       time.Duration
	BaseInputTickDelay uint32
	Received           historystore.Store
	Outbound           historystore.Store
	Logger             *zap.Logger
}

// New returns a Pipeline. A nil Logger defaults to zap.NewNop().
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		tickTimestep:       cfg.TickTimestep,
		baseInputTickDelay: cfg.BaseInputTickDelay,
		received:           cfg.Received,
		outbound:           cfg.Outbound,
		log:                logger,
	}
}

// Submit processes one ClientSendCommands arrival, per spec.md section
// 4.3's three numbered steps:
//  1. issuingPeer is supplied by the caller (it resolves the transport
//     sender handle, falling back to command.HostPeerID for self-sent
//     events -- that fallback happens at the transport-facing edge, not
//     here).
//  2. received-log[issuedTick][issuingPeer] is always overwritten, even
//     for an empty submission -- this is the heartbeat.
//  3. If commands is non-empty, its execute_tick is computed from
//     currentHostTick and rtt, and the commands are inserted into the
//     outbound (broadcast) log at that tick.
func (p *Pipeline) Submit(issuingPeer command.PeerID, issuedTick command.SimTick, commands []command.Command, currentHostTick command.SimTick, rtt time.Duration) command.SimTick {
	bundle, _ := p.received.Get(issuedTick)
	if bundle == nil {
		bundle = command.NewBundle()
	} else {
		bundle = bundle.Clone()
	}
	bundle[issuingPeer] = commands
	p.received.Put(issuedTick, bundle)
	p.log.Debug("received commands",
		zap.Uint64("peer", uint64(issuingPeer)),
		zap.Uint32("issued_tick", uint32(issuedTick)),
		zap.Int("count", len(commands)),
	)

	if len(commands) == 0 {
		return 0
	}

	executeTick := p.executeTick(currentHostTick, rtt)
	out, _ := p.outbound.Get(executeTick)
	if out == nil {
		out = command.NewBundle()
	} else {
		out = out.Clone()
	}
	out[issuingPeer] = commands
	p.outbound.Put(executeTick, out)
	p.log.Debug("scheduled commands for execution",
		zap.Uint64("peer", uint64(issuingPeer)),
		zap.Uint32("execute_tick", uint32(executeTick)),
	)
	return executeTick
}

// executeTick implements spec.md section 4.3's formula:
//
//	execute_tick = current_host_tick + ceil((rtt_seconds/2) / tick_timestep_seconds) + base_input_tick_delay
func (p *Pipeline) executeTick(currentHostTick command.SimTick, rtt time.Duration) command.SimTick {
	halfRTT := rtt.Seconds() / 2
	delayTicks := uint32(math.Ceil(halfRTT / p.tickTimestep.Seconds()))
	return currentHostTick + command.SimTick(delayTicks) + command.SimTick(p.baseInputTickDelay)
}

// Reset clears both logs, performed on every Starting->Running transition
// alongside the clock and SimulationID allocator resets (spec.md section 4.1).
func (p *Pipeline) Reset() {
	p.received.Reset()
	p.outbound.Reset()
}

// HostLocalRTT is the RTT the host-local pseudo-peer's commands are priced
// at: zero transport latency still yields a 1-tick delay above
// BaseInputTickDelay, per spec.md section 4.3's "for the host-local
// pseudo-peer, RTT defaults to yield a 1-tick delay". With
// BaseInputTickDelay=1 that means ceil(HostLocalRTT/2 / timestep) must be 1,
// so any duration in (0, 2*tickTimestep] works; we use exactly two
// timesteps, which puts half the RTT at one timestep.
func HostLocalRTT(tickTimestep time.Duration) time.Duration {
	return 2 * tickTimestep
}

// ReceivedAt returns the bundle the received-log has for tick, or an empty
// bundle if nothing has arrived yet.
func (p *Pipeline) ReceivedAt(tick command.SimTick) command.Bundle {
	b, ok := p.received.Get(tick)
	if !ok {
		return command.NewBundle()
	}
	return b
}

// BroadcastAt returns the bundle scheduled for broadcast at tick, or an
// empty bundle if nothing is scheduled -- spec.md section 4.3's "If
// broadcast-log[T] is absent, an empty bundle is still broadcast".
func (p *Pipeline) BroadcastAt(tick command.SimTick) command.Bundle {
	b, ok := p.outbound.Get(tick)
	if !ok {
		return command.NewBundle()
	}
	return b
}
