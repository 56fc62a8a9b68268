package historystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lockstep/coordinator/pkg/command"
)

func TestBoltCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.bolt")
	cp, err := OpenBoltCheckpointer(path)
	require.NoError(t, err)
	defer cp.Close()

	bundle := command.Bundle{1: {{Type: 1, Data: []byte("x")}}, 2: nil}
	require.NoError(t, cp.Checkpoint(12, bundle))

	got, ok, err := cp.Load(12)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, bundle.Equal(got))

	_, ok, err = cp.Load(13)
	require.NoError(t, err)
	require.False(t, ok)
}
