package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBundlePeersAscending(t *testing.T) {
	b := Bundle{
		5: {{Type: 1, Data: []byte("a")}},
		1: {{Type: 1, Data: []byte("b")}},
		3: {},
	}
	require.Equal(t, []PeerID{1, 3, 5}, b.Peers())
}

func TestBundleEqual(t *testing.T) {
	a := Bundle{1: {{Type: 1, Data: []byte("x")}}}
	b := Bundle{1: {{Type: 1, Data: []byte("x")}}}
	require.True(t, a.Equal(b))

	c := Bundle{1: {{Type: 2, Data: []byte("x")}}}
	require.False(t, a.Equal(c))

	require.False(t, a.Equal(Bundle{2: nil}))
}

func TestBundleClone(t *testing.T) {
	a := Bundle{1: {{Type: 1, Data: []byte("x")}}}
	cp := a.Clone()
	cp[1][0].Type = 9
	require.Equal(t, TypeID(1), a[1][0].Type)
}
