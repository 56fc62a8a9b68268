// Package random provides the small random-data helpers used by tests that
// need fixture command payloads and peer ids without hand-rolling their own
// generator each time.
package random

import (
	"math/rand"
	"time"

	"github.com/lockstep/coordinator/pkg/command"
)

// Bytes returns a random byte slice of specified length, used to fixture
// Command.Data payloads in tests.
func Bytes(n int) []byte {
	b := make([]byte, n)
	Fill(b)
	return b
}

// Fill fills buf with random bytes.
func Fill(buf []byte) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Read(buf)
}

// Int returns a random integer in [min,max).
func Int(min, max int) int {
	return min + rand.Intn(max-min)
}

// PeerID returns a random non-host PeerID, for tests that need several
// distinct peers without caring which ids they land on.
func PeerID() command.PeerID {
	return command.PeerID(Int(2, 1<<16))
}

// Command returns a fixture Command with a random type and payload.
func Command() command.Command {
	return command.Command{Type: command.TypeID(Int(1, 1<<8)), Data: Bytes(8)}
}

func init() {
	//nolint:staticcheck
	rand.Seed(time.Now().UTC().UnixNano())
}
