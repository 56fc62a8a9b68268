// Package events defines the external interfaces from spec.md section 6:
// the outbound events the core emits for the host game loop to consume,
// and the inbound events the host game loop feeds into the core.
package events

import (
	"github.com/lockstep/coordinator/pkg/command"
	"github.com/lockstep/coordinator/pkg/simstate"
)

// TickUpdate announces that tick is now active; the accompanying bundle is
// the authoritative command list to execute this tick.
type TickUpdate struct {
	Tick   command.SimTick
	Bundle command.Bundle
}

// SimulationStateChanged announces a session lifecycle transition.
type SimulationStateChanged struct {
	Old, New simstate.State
}

// ClientDisconnect announces that peer has been declared disconnected,
// either by the host-side gate timing out or the local transport dropping.
type ClientDisconnect struct {
	Peer command.PeerID
}

// ClientReconnect is fired client-side the instant the local transport
// reports a drop, in the same call that starts the reconnect timer, not
// when the timer expires (SPEC_FULL.md supplemented feature 2, grounded on
// connections.rs's handle_local_client_disconnect).
type ClientReconnect struct{}

// SessionFault is raised for a protocol violation or other unrecoverable
// condition. Emitting it changes no session state, and the core keeps
// accepting calls afterwards.
type SessionFault struct {
	Reason error
}

// Sink receives outbound events. The host game loop implements this (or
// uses Funnel, below) to react to TickUpdate/SimulationStateChanged/
// ClientDisconnect/ClientReconnect/SessionFault.
type Sink interface {
	OnTickUpdate(TickUpdate)
	OnStateChanged(SimulationStateChanged)
	OnClientDisconnect(ClientDisconnect)
	OnClientReconnect(ClientReconnect)
	OnSessionFault(SessionFault)
}

// Funnel is a Sink built from independent callbacks, so callers don't need
// to implement every method of Sink when they only care about a subset.
// Nil callbacks are simply skipped.
type Funnel struct {
	TickUpdate      func(TickUpdate)
	StateChanged    func(SimulationStateChanged)
	ClientDisconnect func(ClientDisconnect)
	ClientReconnect  func(ClientReconnect)
	SessionFault     func(SessionFault)
}

func (f Funnel) OnTickUpdate(e TickUpdate) {
	if f.TickUpdate != nil {
		f.TickUpdate(e)
	}
}

func (f Funnel) OnStateChanged(e SimulationStateChanged) {
	if f.StateChanged != nil {
		f.StateChanged(e)
	}
}

func (f Funnel) OnClientDisconnect(e ClientDisconnect) {
	if f.ClientDisconnect != nil {
		f.ClientDisconnect(e)
	}
}

func (f Funnel) OnClientReconnect(e ClientReconnect) {
	if f.ClientReconnect != nil {
		f.ClientReconnect(e)
	}
}

func (f Funnel) OnSessionFault(e SessionFault) {
	if f.SessionFault != nil {
		f.SessionFault(e)
	}
}
