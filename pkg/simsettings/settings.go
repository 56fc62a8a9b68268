// Package simsettings holds the YAML-loadable configuration surface of the
// lockstep coordinator, following the teacher's Config/LoadFile convention
// (pkg/config/config.go): a root struct with nested, yaml-tagged sections
// and sane defaults, loaded from a single file passed on the command line.
package simsettings

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerMode selects whether this process hosts a colocated local client
// (host-plus-client) or runs as a dedicated server with no local gameplay.
type ServerMode string

const (
	// ModeHost runs the host game loop and the authoritative simulation in
	// one process, with the host's own input funneled through PeerID 1.
	ModeHost ServerMode = "host"
	// ModeDedicated runs only the authoritative simulation, with no local
	// pseudo-peer.
	ModeDedicated ServerMode = "dedicated"
)

// Simulation holds five of the six tick/timing knobs from spec.md section
// 3; the sixth, the reconnect timer, is Connection.ReconnectTimer.
type Simulation struct {
	// TickTimestep is the wall-clock duration of one simulation tick.
	TickTimestep time.Duration `yaml:"TickTimestep"`
	// NumPlayers is the peer count required to leave Connecting.
	NumPlayers uint8 `yaml:"NumPlayers"`
	// BaseInputTickDelay is additive jitter buffer above the RTT-derived delay.
	BaseInputTickDelay uint32 `yaml:"BaseInputTickDelay"`
	// ConnectionCheckTickDelay is additive slack when checking liveness in the past.
	ConnectionCheckTickDelay uint32 `yaml:"ConnectionCheckTickDelay"`
	// DisconnectTickThreshold is consecutive failed gate checks before Paused.
	DisconnectTickThreshold uint32 `yaml:"DisconnectTickThreshold"`
}

// DefaultSimulation mirrors the Rust plugin's Default impl, except
// NumPlayers which callers nearly always override.
func DefaultSimulation() Simulation {
	return Simulation{
		TickTimestep:             33 * time.Millisecond,
		NumPlayers:               8,
		BaseInputTickDelay:       2,
		ConnectionCheckTickDelay: 5,
		DisconnectTickThreshold:  10,
	}
}

// Connection holds the transport-facing, non-simulation settings.
type Connection struct {
	ServerMode     ServerMode    `yaml:"ServerMode"`
	ServerAddress  net.IP        `yaml:"ServerAddress"`
	ServerPort     uint16        `yaml:"ServerPort"`
	ReconnectTimer time.Duration `yaml:"ReconnectTimer"`
}

// DefaultConnection mirrors the Rust plugin's ConnectionSettings default.
func DefaultConnection() Connection {
	return Connection{
		ServerMode:     ModeHost,
		ServerAddress:  net.IPv4(127, 0, 0, 1),
		ServerPort:     15342,
		ReconnectTimer: 5 * time.Second,
	}
}

// Retention configures the optional bounding of the liveness-only
// received-log, resolving spec.md section 9's open question.
type Retention struct {
	// TrimReceivedLog enables an LRU-bounded received-log instead of the
	// unbounded dense default.
	TrimReceivedLog bool `yaml:"TrimReceivedLog"`
	// ReceivedLogCapacity is the number of most-recent ticks retained when
	// TrimReceivedLog is set.
	ReceivedLogCapacity int `yaml:"ReceivedLogCapacity"`
	// CheckpointPath, if non-empty, names a bbolt file to which the host
	// writes the broadcast-log entry at its current tick once every
	// CheckpointEvery scheduler steps; entries for the ticks in between
	// are not written.
	CheckpointPath  string `yaml:"CheckpointPath"`
	CheckpointEvery uint32 `yaml:"CheckpointEvery"`
}

// Config is the top-level, yaml-loadable configuration for a coordinator
// process.
type Config struct {
	Simulation Simulation `yaml:"Simulation"`
	Connection Connection `yaml:"Connection"`
	Retention  Retention  `yaml:"Retention"`
}

// Default returns a Config with every section defaulted.
func Default() Config {
	return Config{
		Simulation: DefaultSimulation(),
		Connection: DefaultConnection(),
	}
}

// LoadFile reads and parses a YAML config file, following the teacher's
// LoadFile convention of failing closed on a missing or malformed file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("simsettings: read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("simsettings: parse config: %w", err)
	}
	return cfg, nil
}
