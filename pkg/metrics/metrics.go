// Package metrics exposes the coordinator's Prometheus metrics, grounded on
// pkg/consensus/prometheus.go's package-level gauge/counter pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lockstep/coordinator/pkg/simstate"
)

const namespace = "lockstep"

var (
	currentTick = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_host_tick",
		Help:      "Current authoritative SimTick.",
	})
	connectedPeers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_peers",
		Help:      "Number of peers currently connected to the session.",
	})
	gateFailStreak = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gate_fail_streak",
		Help:      "Consecutive host gate evaluations that failed to find all peers present.",
	})
	broadcastBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_bytes_total",
		Help:      "Total bytes written by ServerSendCommands encodes.",
	})
	sessionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_state",
		Help:      "Current session lifecycle state, as its simstate.State ordinal.",
	})
)

// Register adds all coordinator metrics to the default Prometheus registry.
// Call once per process; a second session in the same process reuses the
// same collectors (they are process-wide, not per-session).
func Register() {
	prometheus.MustRegister(currentTick, connectedPeers, gateFailStreak, broadcastBytes, sessionState)
}

// SetCurrentTick records the authoritative SimTick.
func SetCurrentTick(tick uint32) {
	currentTick.Set(float64(tick))
}

// SetConnectedPeers records the connected peer count.
func SetConnectedPeers(n int) {
	connectedPeers.Set(float64(n))
}

// SetGateFailStreak records the host advancer's current disconnect-timer
// value.
func SetGateFailStreak(n uint32) {
	gateFailStreak.Set(float64(n))
}

// AddBroadcastBytes accumulates bytes written to the wire for one
// ServerSendCommands encode.
func AddBroadcastBytes(n int) {
	broadcastBytes.Add(float64(n))
}

// SetSessionState records the session's current lifecycle state.
func SetSessionState(s simstate.State) {
	sessionState.Set(float64(s))
}
