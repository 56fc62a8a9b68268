// Package wire implements the transport-facing codec from spec.md section
// 4.5: framing for CommandBundle, ClientSendCommands and the control
// events, over the ordered/unordered reliable channels the transport
// provides. It is grounded on the teacher's pkg/io BinReader/BinWriter
// convention (see pkg/io), the same pattern pkg/consensus/recovery_message.go
// uses to frame its own payloads field-by-field.
package wire

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lockstep/coordinator/pkg/command"
	lio "github.com/lockstep/coordinator/pkg/io"
)

// maxCommandFrameSize bounds a single command frame's declared length,
// guarding against a malformed peer claiming an enormous allocation.
const maxCommandFrameSize = 1 << 20

// encodeCommand frames a single opaque command: u16 type tag, then a
// length-prefixed blob.
func encodeCommand(w *lio.BinWriter, c command.Command) {
	w.WriteU16LE(uint16(c.Type))
	w.WriteVarBytes(c.Data)
}

func decodeCommand(r *lio.BinReader) command.Command {
	typ := r.ReadU16LE()
	data := r.ReadVarBytes(maxCommandFrameSize)
	return command.Command{Type: command.TypeID(typ), Data: data}
}

// EncodeClientSendCommands frames a ClientSendCommands wire message:
// u16 cmd_count; repeat cmd_frame; u32 issued_tick.
func EncodeClientSendCommands(issuedTick command.SimTick, commands []command.Command) ([]byte, error) {
	w := lio.NewBufBinWriter()
	w.WriteU16LE(uint16(len(commands)))
	for _, c := range commands {
		encodeCommand(w, c)
	}
	w.WriteU32LE(uint32(issuedTick))
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "wire: encode ClientSendCommands")
	}
	return w.Bytes(), nil
}

// DecodeClientSendCommands parses a ClientSendCommands wire message.
func DecodeClientSendCommands(data []byte) (command.SimTick, []command.Command, error) {
	r := lio.NewBinReaderFromBuf(data)
	n := r.ReadU16LE()
	commands := make([]command.Command, 0, n)
	for i := uint16(0); i < n; i++ {
		commands = append(commands, decodeCommand(r))
	}
	tick := r.ReadU32LE()
	if r.Err != nil {
		return 0, nil, errors.Wrap(r.Err, "wire: decode ClientSendCommands")
	}
	return command.SimTick(tick), commands, nil
}

// EncodeBundle frames a ServerSendCommands wire message: u8 peer_count;
// repeat { u64 peer_id; u16 cmd_count; repeat cmd_frame } u32 tick. Peers
// are iterated in ascending PeerID order -- the wire-level determinism
// requirement of spec.md section 4.5.
func EncodeBundle(tick command.SimTick, bundle command.Bundle) ([]byte, error) {
	if len(bundle) > 0xff {
		return nil, fmt.Errorf("wire: bundle has %d peers, exceeds u8 frame limit", len(bundle))
	}
	w := lio.NewBufBinWriter()
	w.WriteB(byte(len(bundle)))
	for _, peer := range bundle.Peers() {
		cmds := bundle[peer]
		w.WriteU64LE(uint64(peer))
		w.WriteU16LE(uint16(len(cmds)))
		for _, c := range cmds {
			encodeCommand(w, c)
		}
	}
	w.WriteU32LE(uint32(tick))
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "wire: encode ServerSendCommands")
	}
	return w.Bytes(), nil
}

// DecodeBundle parses a ServerSendCommands wire message.
func DecodeBundle(data []byte) (command.SimTick, command.Bundle, error) {
	r := lio.NewBinReaderFromBuf(data)
	peerCount := r.ReadB()
	bundle := command.NewBundle()
	var lastPeer command.PeerID
	for i := byte(0); i < peerCount; i++ {
		peer := command.PeerID(r.ReadU64LE())
		if i > 0 && peer <= lastPeer {
			return 0, nil, fmt.Errorf("wire: peer order violation: %d did not increase past %d", peer, lastPeer)
		}
		lastPeer = peer
		n := r.ReadU16LE()
		cmds := make([]command.Command, 0, n)
		for j := uint16(0); j < n; j++ {
			cmds = append(cmds, decodeCommand(r))
		}
		bundle[peer] = cmds
	}
	tick := r.ReadU32LE()
	if r.Err != nil {
		return 0, nil, errors.Wrap(r.Err, "wire: decode ServerSendCommands")
	}
	return command.SimTick(tick), bundle, nil
}
