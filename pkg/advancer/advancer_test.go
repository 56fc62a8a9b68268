package advancer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockstep/coordinator/internal/random"
	"github.com/lockstep/coordinator/pkg/clock"
	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/events"
	"github.com/lockstep/coordinator/pkg/historystore"
	"github.com/lockstep/coordinator/pkg/membership"
	"github.com/lockstep/coordinator/pkg/pipeline"
	"github.com/lockstep/coordinator/pkg/simstate"
)

type harness struct {
	clk      *clock.Clock
	members  *membership.Manager
	pipe     *pipeline.Pipeline
	state    *simstate.Machine
	host     *Host
	sunk     []events.ClientDisconnect
	ticks    []events.TickUpdate
	states   []events.SimulationStateChanged
}

func newHarness(t *testing.T, numPeers int, disconnectThreshold uint32) *harness {
	t.Helper()
	h := &harness{
		clk:     &clock.Clock{},
		members: membership.NewManager(membership.ModeDedicated),
		pipe: pipeline.New(pipeline.Config{
			TickTimestep:       33 * time.Millisecond,
			BaseInputTickDelay: 1,
			Received:           historystore.NewDense(),
			Outbound:           historystore.NewDense(),
		}),
		state: simstate.NewMachine(),
	}
	for i := 1; i <= numPeers; i++ {
		h.members.Connect(command.PeerID(i))
	}
	h.state.Transition(simstate.Running)

	sink := events.Funnel{
		TickUpdate:       func(e events.TickUpdate) { h.ticks = append(h.ticks, e) },
		StateChanged:     func(e events.SimulationStateChanged) { h.states = append(h.states, e) },
		ClientDisconnect: func(e events.ClientDisconnect) { h.sunk = append(h.sunk, e) },
	}
	h.host = NewHost(Config{
		TickTimestep:             33 * time.Millisecond,
		ConnectionCheckTickDelay: 1,
		DisconnectTickThreshold:  disconnectThreshold,
		Clock:                    h.clk,
		Members:                  h.members,
		Pipeline:                 h.pipe,
		State:                    h.state,
		EventSink:                sink,
	})
	return h
}

// TestTwoPeerSteadyState is spec.md section 8 scenario 1: both peers
// connect, peer A sends empty bundles, peer B submits at issued_tick=5 with
// RTT=0. With connection_check_tick_delay=1 the gate's lookback is 1, so
// the advancer needs heartbeats one tick behind current to keep advancing.
func TestTwoPeerSteadyState(t *testing.T) {
	h := newHarness(t, 2, 20)

	for tick := command.SimTick(0); tick < 8; tick++ {
		h.pipe.Submit(1, tick, nil, h.clk.Tick(), 0)
		var cmds []command.Command
		if tick == 5 {
			cmds = []command.Command{random.Command()}
		}
		hostTick := h.clk.Tick()
		execTick := h.pipe.Submit(2, tick, cmds, hostTick, 0)
		h.host.Step(0)
		if tick == 5 {
			require.Equal(t, hostTick+1, execTick) // offset = 0 (rtt) + 1 (base)
		}
	}

	require.NotEmpty(t, h.ticks)
	found := false
	for _, tu := range h.ticks {
		if cmds, ok := tu.Bundle[2]; ok && len(cmds) > 0 {
			found = true
		}
	}
	require.True(t, found, "command X must have been broadcast at its execute_tick")
}

// TestDisconnectPause is spec.md section 8 scenario 2: a peer stops
// sending; after disconnect_tick_threshold consecutive gate failures the
// session transitions to Paused and ClientDisconnect fires exactly once.
func TestDisconnectPause(t *testing.T) {
	h := newHarness(t, 2, 20)

	// Prime a few ticks where both peers heartbeat so the clock advances.
	for i := 0; i < 3; i++ {
		h.pipe.Submit(1, h.clk.Tick(), nil, h.clk.Tick(), 0)
		h.pipe.Submit(2, h.clk.Tick(), nil, h.clk.Tick(), 0)
		h.host.Step(0)
	}

	// Peer 2 stops sending; peer 1 keeps heartbeating.
	for i := 0; i < 25; i++ {
		h.pipe.Submit(1, h.clk.Tick(), nil, h.clk.Tick(), 0)
		h.host.Step(0)
	}

	require.Equal(t, simstate.Paused, h.state.Current())
	require.Len(t, h.sunk, 1)
	require.Equal(t, command.PeerID(2), h.sunk[0].Peer)
}

func TestReadinessBarrierBlocksStarting(t *testing.T) {
	m := membership.NewManager(membership.ModeDedicated)
	m.Connect(1)
	m.Connect(2)
	m.Connect(3)
	m.MarkReady(1)
	m.MarkReady(2)
	require.False(t, m.AllReady())
}

func TestClientIngestStrictSequence(t *testing.T) {
	clk := &clock.Clock{}
	var faults []events.SessionFault
	sink := events.Funnel{SessionFault: func(f events.SessionFault) { faults = append(faults, f) }}
	c := NewClient(clk, sink, nil)

	require.NoError(t, c.Ingest(1, command.NewBundle()))
	require.NoError(t, c.Ingest(2, command.NewBundle()))
	err := c.Ingest(4, command.NewBundle()) // skips 3 -- spec.md section 8 scenario 5
	require.Error(t, err)
	require.Len(t, faults, 1)
}
