// Package membership implements peer identity, readiness barriers and
// disconnect/reconnect bookkeeping from spec.md section 4.2. It is grounded
// on original_source/replicon_lockstep/src/connections.rs for the
// LocalIdRequest/LocalIdResponse handshake and the readiness barrier, and on
// the mutex-protected peer registry idiom seen across the retrieval pack's
// peer-manager files (e.g. pkg-p2pnet-peermanager.go, pkg-peer-manager.go).
package membership

import (
	"sort"
	"sync"
	"time"

	"github.com/lockstep/coordinator/pkg/command"
)

// Peer tracks one connected participant.
type Peer struct {
	ID        command.PeerID
	IsLocal   bool
	Ready     bool
	connected time.Time
}

// Manager owns the set of connected peers for one session. All methods are
// safe for concurrent use: transport callbacks (connect/disconnect) may
// arrive on a different goroutine than the scheduler step that reads
// Connected(), per spec.md section 5's "funnel decoded events into the
// single core scheduler context" -- the mutex is the funnel's seam.
type Manager struct {
	mu          sync.RWMutex
	peers       map[command.PeerID]*Peer
	mode        ServerMode
	localPeerID command.PeerID
	haveLocal   bool
}

// ServerMode mirrors simsettings.ServerMode without importing it, to keep
// membership dependency-free of the config package.
type ServerMode uint8

const (
	// ModeDedicated runs no local pseudo-peer.
	ModeDedicated ServerMode = iota
	// ModeHost synthesizes a local pseudo-peer at PeerID 1 on first
	// real connection.
	ModeHost
)

// NewManager returns an empty Manager for the given server mode.
func NewManager(mode ServerMode) *Manager {
	return &Manager{peers: make(map[command.PeerID]*Peer), mode: mode}
}

// Connect registers a newly connected peer. In host mode, the first real
// connection also synthesizes the local pseudo-peer at command.HostPeerID,
// per spec.md section 4.2.
func (m *Manager) Connect(id command.PeerID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == ModeHost && !m.haveLocal {
		m.peers[command.HostPeerID] = &Peer{ID: command.HostPeerID, IsLocal: true, connected: time.Now()}
		m.haveLocal = true
	}
	if id == command.HostPeerID {
		// The host's own synthesized entry already covers this; avoid
		// clobbering IsLocal/Ready state with a duplicate connect.
		return
	}
	if _, exists := m.peers[id]; !exists {
		m.peers[id] = &Peer{ID: id, connected: time.Now()}
	}
}

// Disconnect removes a peer from the connected set.
func (m *Manager) Disconnect(id command.PeerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, id)
}

// MarkReady records that a peer has completed Setup-phase work and sent
// ClientReady.
func (m *Manager) MarkReady(id command.PeerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.peers[id]; ok {
		p.Ready = true
	}
}

// Connected returns the currently connected peer ids in ascending order.
func (m *Manager) Connected() []command.PeerID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]command.PeerID, 0, len(m.peers))
	for id := range m.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of connected peers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peers)
}

// AllReady reports whether every connected peer has been marked ready. An
// empty peer set is vacuously not ready (mirrors check_all_clients_ready,
// which only fires once ids.iter().len() matches num_players).
func (m *Manager) AllReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.peers) == 0 {
		return false
	}
	for _, p := range m.peers {
		if !p.Ready {
			return false
		}
	}
	return true
}

// IsConnected reports whether id is currently connected.
func (m *Manager) IsConnected(id command.PeerID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.peers[id]
	return ok
}
