package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockstep/coordinator/pkg/command"
)

func TestConnectSynthesizesHostPseudoPeerInHostMode(t *testing.T) {
	m := NewManager(ModeHost)
	m.Connect(2)
	require.Equal(t, []command.PeerID{1, 2}, m.Connected())
}

func TestConnectNoPseudoPeerInDedicatedMode(t *testing.T) {
	m := NewManager(ModeDedicated)
	m.Connect(2)
	require.Equal(t, []command.PeerID{2}, m.Connected())
}

func TestReadinessBarrier(t *testing.T) {
	m := NewManager(ModeDedicated)
	m.Connect(1)
	m.Connect(2)
	m.Connect(3)
	require.False(t, m.AllReady())

	m.MarkReady(1)
	m.MarkReady(2)
	require.False(t, m.AllReady(), "withholding ready from one peer must block the barrier")

	m.MarkReady(3)
	require.True(t, m.AllReady())
}

func TestDisconnectRemovesPeer(t *testing.T) {
	m := NewManager(ModeDedicated)
	m.Connect(1)
	m.Disconnect(1)
	require.False(t, m.IsConnected(1))
	require.Equal(t, 0, m.Count())
}

func TestReconnectTimer(t *testing.T) {
	timer := NewReconnectTimer(5 * time.Second)
	now := time.Now()
	require.False(t, timer.Expired(now))

	timer.Start(now)
	require.False(t, timer.Expired(now.Add(4*time.Second)))
	require.True(t, timer.Expired(now.Add(5*time.Second)))

	timer.Stop()
	require.False(t, timer.Expired(now.Add(10*time.Second)))
}

func TestLocalIDHandshakeIdempotent(t *testing.T) {
	var h LocalIDHandshake
	_, ok := h.Resolved()
	require.False(t, ok)

	h.Resolve(7)
	h.Resolve(7) // retried response, still idempotent
	id, ok := h.Resolved()
	require.True(t, ok)
	require.Equal(t, command.PeerID(7), id)
}
