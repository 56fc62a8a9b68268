package simsettings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 33*time.Millisecond, cfg.Simulation.TickTimestep)
	require.Equal(t, ModeHost, cfg.Connection.ServerMode)
	require.Equal(t, uint16(15342), cfg.Connection.ServerPort)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coordinator.yml")
	contents := `
Simulation:
  NumPlayers: 2
  DisconnectTickThreshold: 20
Connection:
  ServerMode: dedicated
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, uint8(2), cfg.Simulation.NumPlayers)
	require.Equal(t, uint32(20), cfg.Simulation.DisconnectTickThreshold)
	require.Equal(t, ModeDedicated, cfg.Connection.ServerMode)
	// unset fields still default.
	require.Equal(t, 33*time.Millisecond, cfg.Simulation.TickTimestep)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/coordinator.yml")
	require.Error(t, err)
}
