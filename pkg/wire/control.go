package wire

import (
	"fmt"

	"github.com/pkg/errors"

	lio "github.com/lockstep/coordinator/pkg/io"
	"github.com/lockstep/coordinator/pkg/simstate"
)

// EncodeSetSimulationState frames SetSimulationState as a single-byte enum
// tag, per spec.md section 4.5/6.
func EncodeSetSimulationState(s simstate.State) []byte {
	return []byte{byte(s)}
}

// DecodeSetSimulationState parses a SetSimulationState frame.
func DecodeSetSimulationState(data []byte) (simstate.State, error) {
	if len(data) != 1 {
		return 0, fmt.Errorf("wire: SetSimulationState frame must be 1 byte, got %d", len(data))
	}
	return simstate.State(data[0]), nil
}

// EncodeLocalIDResponse frames LocalIdResponse(u64) on the unordered
// reliable channel.
func EncodeLocalIDResponse(peerID uint64) []byte {
	w := lio.NewBufBinWriter()
	w.WriteU64LE(peerID)
	return w.Bytes()
}

// DecodeLocalIDResponse parses a LocalIdResponse frame.
func DecodeLocalIDResponse(data []byte) (uint64, error) {
	r := lio.NewBinReaderFromBuf(data)
	id := r.ReadU64LE()
	if r.Err != nil {
		return 0, errors.Wrap(r.Err, "wire: decode LocalIdResponse")
	}
	return id, nil
}
