package simstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachineTransitionFiresListeners(t *testing.T) {
	m := NewMachine()
	require.Equal(t, None, m.Current())

	var seen []State
	m.OnChange(func(old, next State) {
		seen = append(seen, old, next)
	})

	m.Transition(Connecting)
	m.Transition(Setup)

	require.Equal(t, []State{None, Connecting, Connecting, Setup}, seen)
	require.Equal(t, Setup, m.Current())
}

func TestMachineTransitionNoopSkipsListeners(t *testing.T) {
	m := NewMachine()
	m.Transition(Running)
	called := false
	m.OnChange(func(State, State) { called = true })
	m.Transition(Running)
	require.False(t, called)
}

func TestCanHostInitiate(t *testing.T) {
	require.True(t, CanHostInitiate(Connecting, Setup))
	require.True(t, CanHostInitiate(Setup, Starting))
	require.True(t, CanHostInitiate(Starting, Running))
	require.True(t, CanHostInitiate(Running, Paused))
	require.True(t, CanHostInitiate(Running, Ending))
	require.False(t, CanHostInitiate(Running, Reconnecting))
	require.False(t, CanHostInitiate(None, Running))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Running", Running.String())
	require.Equal(t, "Unknown", State(255).String())
}
