package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/simstate"
)

func TestClientSendCommandsRoundTrip(t *testing.T) {
	cmds := []command.Command{
		{Type: 1, Data: []byte("move")},
		{Type: 2, Data: []byte("spawn")},
	}
	data, err := EncodeClientSendCommands(42, cmds)
	require.NoError(t, err)

	tick, decoded, err := DecodeClientSendCommands(data)
	require.NoError(t, err)
	require.Equal(t, command.SimTick(42), tick)
	require.Equal(t, cmds, decoded)
}

func TestClientSendCommandsRoundTripEmpty(t *testing.T) {
	data, err := EncodeClientSendCommands(7, nil)
	require.NoError(t, err)
	tick, decoded, err := DecodeClientSendCommands(data)
	require.NoError(t, err)
	require.Equal(t, command.SimTick(7), tick)
	require.Empty(t, decoded)
}

func TestBundleRoundTripPreservesPeerOrder(t *testing.T) {
	bundle := command.Bundle{
		5: {{Type: 1, Data: []byte("a")}},
		1: {{Type: 2, Data: []byte("b")}},
		3: nil,
	}
	data, err := EncodeBundle(100, bundle)
	require.NoError(t, err)

	tick, decoded, err := DecodeBundle(data)
	require.NoError(t, err)
	require.Equal(t, command.SimTick(100), tick)
	require.True(t, bundle.Equal(decoded))
	require.Equal(t, []command.PeerID{1, 3, 5}, decoded.Peers())
}

func TestBundleRoundTripEmptyBundle(t *testing.T) {
	data, err := EncodeBundle(3, command.NewBundle())
	require.NoError(t, err)
	tick, decoded, err := DecodeBundle(data)
	require.NoError(t, err)
	require.Equal(t, command.SimTick(3), tick)
	require.Empty(t, decoded)
}

// TestBundleDecodeRejectsOutOfOrderPeers exercises the wire-level
// determinism requirement of spec.md section 4.5: a frame whose peer ids
// do not strictly increase is a protocol violation and must be rejected,
// not silently accepted (spec.md section 8 scenario 5).
func TestBundleDecodeRejectsOutOfOrderPeers(t *testing.T) {
	w := newRawBundleWithBadOrder(t)
	_, _, err := DecodeBundle(w)
	require.Error(t, err)
}

func newRawBundleWithBadOrder(t *testing.T) []byte {
	t.Helper()
	// Hand-construct a 2-peer frame with descending peer ids (5 then 1),
	// which a correctly-ordered channel could never deliver but a fuzzer
	// or malicious peer could.
	data, err := EncodeBundle(1, command.Bundle{1: nil, 5: nil})
	require.NoError(t, err)
	// data[0] is peer_count=2; swap the two u64 peer ids at offsets 1 and 11.
	out := make([]byte, len(data))
	copy(out, data)
	out[0] = 2
	copy(out[1:9], []byte{5, 0, 0, 0, 0, 0, 0, 0})
	copy(out[11:19], []byte{1, 0, 0, 0, 0, 0, 0, 0})
	return out
}

func TestSetSimulationStateRoundTrip(t *testing.T) {
	data := EncodeSetSimulationState(simstate.Running)
	s, err := DecodeSetSimulationState(data)
	require.NoError(t, err)
	require.Equal(t, simstate.Running, s)
}

func TestLocalIDResponseRoundTrip(t *testing.T) {
	data := EncodeLocalIDResponse(42)
	id, err := DecodeLocalIDResponse(data)
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
}
