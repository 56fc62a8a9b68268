package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockstep/coordinator/internal/random"
	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/events"
	"github.com/lockstep/coordinator/pkg/simsettings"
	"github.com/lockstep/coordinator/pkg/simstate"
)

func testConfig(numPlayers uint8) simsettings.Config {
	cfg := simsettings.Default()
	cfg.Simulation.NumPlayers = numPlayers
	cfg.Simulation.TickTimestep = 33 * time.Millisecond
	cfg.Simulation.BaseInputTickDelay = 1
	cfg.Simulation.ConnectionCheckTickDelay = 1
	cfg.Simulation.DisconnectTickThreshold = 20
	cfg.Connection.ServerMode = simsettings.ModeDedicated
	return cfg
}

// TestReadinessBarrierGatesStarting is spec.md section 8 scenario 6: with
// num_players=3, Setup only advances to Starting once every connected peer
// has signaled ready.
func TestReadinessBarrierGatesStarting(t *testing.T) {
	var states []events.SimulationStateChanged
	sink := events.Funnel{StateChanged: func(e events.SimulationStateChanged) { states = append(states, e) }}

	h, err := NewHost(testConfig(3), nil, sink, nil)
	require.NoError(t, err)

	h.OnClientConnect(1)
	h.OnClientConnect(2)
	require.Equal(t, simstate.Connecting, h.State())
	h.OnClientConnect(3)
	require.Equal(t, simstate.Setup, h.State())

	require.NoError(t, h.OnClientReady(1))
	require.NoError(t, h.OnClientReady(2))
	require.Equal(t, simstate.Setup, h.State(), "must not start until every peer is ready")

	require.NoError(t, h.OnClientReady(3))
	require.Equal(t, simstate.Running, h.State())

	var sawStarting bool
	for _, s := range states {
		if s.New == simstate.Starting {
			sawStarting = true
		}
	}
	require.True(t, sawStarting, "Starting must be observed on the way to Running")
}

// TestSetupPeerLossIsSessionFaultNotPanic resolves spec.md section 9's open
// question: a peer dropping during Setup reports a SessionFault rather than
// panicking the process.
func TestSetupPeerLossIsSessionFaultNotPanic(t *testing.T) {
	var faults []events.SessionFault
	sink := events.Funnel{SessionFault: func(f events.SessionFault) { faults = append(faults, f) }}

	h, err := NewHost(testConfig(2), nil, sink, nil)
	require.NoError(t, err)
	h.OnClientConnect(1)
	h.OnClientConnect(2)
	require.Equal(t, simstate.Setup, h.State())

	h.OnClientDisconnect(2)
	err = h.OnClientReady(1)
	require.Error(t, err)
	require.Len(t, faults, 1)
}

// TestEndToEndSteadyStateAndDisconnect runs a 2-peer session through
// Setup->Starting->Running, submits commands each tick, and then simulates
// one peer going silent until the host declares it disconnected.
func TestEndToEndSteadyStateAndDisconnect(t *testing.T) {
	var disconnects []events.ClientDisconnect
	var paused bool
	sink := events.Funnel{
		ClientDisconnect: func(e events.ClientDisconnect) { disconnects = append(disconnects, e) },
		StateChanged: func(e events.SimulationStateChanged) {
			if e.New == simstate.Paused {
				paused = true
			}
		},
	}

	h, err := NewHost(testConfig(2), nil, sink, nil)
	require.NoError(t, err)
	h.OnClientConnect(1)
	h.OnClientConnect(2)
	require.NoError(t, h.OnClientReady(1))
	require.NoError(t, h.OnClientReady(2))
	require.Equal(t, simstate.Running, h.State())

	for i := 0; i < 5; i++ {
		tick := h.clk.Tick()
		h.Submit(1, tick, nil, 0)
		h.Submit(2, tick, nil, 0)
		h.Step(0)
	}
	require.Equal(t, simstate.Running, h.State())

	for i := 0; i < 25; i++ {
		tick := h.clk.Tick()
		h.Submit(1, tick, nil, 0)
		h.Step(0)
	}

	require.True(t, paused)
	require.Len(t, disconnects, 1)
	require.Equal(t, command.PeerID(2), disconnects[0].Peer)
}

func TestClientReconnectTimeout(t *testing.T) {
	var disc []events.ClientDisconnect
	sink := events.Funnel{
		ClientDisconnect: func(e events.ClientDisconnect) { disc = append(disc, e) },
	}
	c := NewClient(5*time.Second, sink, nil)
	c.OnStateChanged(simstate.Connecting)
	c.OnStateChanged(simstate.Setup)
	c.OnStateChanged(simstate.Starting)
	c.OnStateChanged(simstate.Running)

	localID := random.PeerID()
	now := time.Now()
	c.OnTransportDropped(now)
	require.Equal(t, simstate.Reconnecting, c.State())

	c.CheckReconnectTimeout(now.Add(1*time.Second), localID)
	require.Equal(t, simstate.Reconnecting, c.State(), "must not time out before the grace period elapses")

	c.CheckReconnectTimeout(now.Add(6*time.Second), localID)
	require.Equal(t, simstate.None, c.State())
	require.Len(t, disc, 1)
	require.Equal(t, localID, disc[0].Peer)
}
