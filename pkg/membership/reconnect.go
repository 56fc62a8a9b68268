package membership

import (
	"time"

	"github.com/lockstep/coordinator/pkg/command"
)

// ReconnectTimer tracks the wall-clock grace period a client gets to
// reconnect before being expelled, per spec.md section 4.1's
// Reconnecting->None transition. It is polled once per scheduler step,
// consistent with spec.md section 5's "no asynchronous cancellation
// tokens are required".
type ReconnectTimer struct {
	budget  time.Duration
	started time.Time
	running bool
}

// NewReconnectTimer returns a timer with the given grace period.
func NewReconnectTimer(budget time.Duration) *ReconnectTimer {
	return &ReconnectTimer{budget: budget}
}

// Start begins the countdown from now.
func (t *ReconnectTimer) Start(now time.Time) {
	t.started = now
	t.running = true
}

// Stop cancels the countdown, e.g. because the peer reconnected.
func (t *ReconnectTimer) Stop() {
	t.running = false
}

// Expired reports whether the grace period has elapsed as of now. A timer
// that was never started never expires.
func (t *ReconnectTimer) Expired(now time.Time) bool {
	return t.running && now.Sub(t.started) >= t.budget
}

// LocalIDHandshake tracks a remote client's idempotent, retryable request
// for its own local peer id, per connections.rs's
// LocalClientIdRequestEvent/LocalClientIdResponseEvent pair.
type LocalIDHandshake struct {
	resolved bool
	localID  command.PeerID
}

// Resolve records the host's response, marking the handshake complete.
func (h *LocalIDHandshake) Resolve(id command.PeerID) {
	h.resolved = true
	h.localID = id
}

// Resolved reports whether the local id has been learned.
func (h *LocalIDHandshake) Resolved() (command.PeerID, bool) {
	return h.localID, h.resolved
}
