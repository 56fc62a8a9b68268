// Package io provides little-endian binary readers and writers used by the
// wire codec. It mirrors the BinReader/BinWriter split of the teacher's own
// pkg/io: a writer that accumulates bytes and remembers the first error it
// hit, and a reader that does the same on the way back, so callers can chain
// a long sequence of Read/Write calls and check the error exactly once at
// the end.
package io

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

// Serializable is implemented by anything the wire codec can frame directly.
type Serializable interface {
	EncodeBinary(w *BinWriter)
	DecodeBinary(r *BinReader)
}

// BinWriter writes LE-encoded primitives into an io.Writer, sticking on the
// first error encountered so call sites don't need to check after every
// field.
type BinWriter struct {
	w   io.Writer
	err error
}

// NewBinWriterFromIO wraps an io.Writer.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{w: iow}
}

// BufBinWriter is a BinWriter backed by an in-memory buffer, with Bytes() to
// retrieve the accumulated frame and Reset() to reuse the writer.
type BufBinWriter struct {
	*BinWriter
	buf *bytes.Buffer
}

// NewBufBinWriter creates a BufBinWriter.
func NewBufBinWriter() *BufBinWriter {
	b := new(bytes.Buffer)
	return &BufBinWriter{BinWriter: NewBinWriterFromIO(b), buf: b}
}

// Bytes returns the accumulated bytes, or nil if an error occurred.
func (bw *BufBinWriter) Bytes() []byte {
	if bw.err != nil {
		return nil
	}
	b := bw.buf.Bytes()
	res := make([]byte, len(b))
	copy(res, b)
	return res
}

// Len returns the number of bytes written so far.
func (bw *BufBinWriter) Len() int {
	return bw.buf.Len()
}

// Reset clears the buffer and any stored error.
func (bw *BufBinWriter) Reset() {
	bw.err = nil
	bw.buf.Reset()
}

// Error returns the first error encountered, if any.
func (w *BinWriter) Error() error {
	return w.err
}

// SetError injects an error, useful for tests exercising the bail-out path.
func (w *BinWriter) SetError(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *BinWriter) writeLE(v interface{}) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.LittleEndian, v)
}

// WriteU64LE writes a uint64 little-endian.
func (w *BinWriter) WriteU64LE(u64 uint64) { w.writeLE(u64) }

// WriteU32LE writes a uint32 little-endian.
func (w *BinWriter) WriteU32LE(u32 uint32) { w.writeLE(u32) }

// WriteU16LE writes a uint16 little-endian.
func (w *BinWriter) WriteU16LE(u16 uint16) { w.writeLE(u16) }

// WriteU16BE writes a uint16 big-endian.
func (w *BinWriter) WriteU16BE(u16 uint16) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.BigEndian, u16)
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(b byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write([]byte{b})
}

// WriteBool writes a boolean as a single byte.
func (w *BinWriter) WriteBool(b bool) {
	if b {
		w.WriteB(1)
	} else {
		w.WriteB(0)
	}
}

// WriteBytes writes a raw byte slice with no length prefix.
func (w *BinWriter) WriteBytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

// WriteVarUint writes u using the same variable-length encoding as the
// teacher: a single byte for values < 0xfd, otherwise a marker byte
// (0xfd/0xfe/0xff) followed by 2/4/8 bytes.
func (w *BinWriter) WriteVarUint(val uint64) {
	if w.err != nil {
		return
	}
	switch {
	case val < 0xfd:
		w.WriteB(byte(val))
	case val <= 0xffff:
		w.WriteB(0xfd)
		w.WriteU16LE(uint16(val))
	case val <= 0xffffffff:
		w.WriteB(0xfe)
		w.WriteU32LE(uint32(val))
	default:
		w.WriteB(0xff)
		w.WriteU64LE(val)
	}
}

// WriteVarBytes writes a length-prefixed byte slice.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.WriteBytes(b)
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *BinWriter) WriteString(s string) {
	w.WriteVarBytes([]byte(s))
}

// WriteArray writes a length prefix followed by each element's EncodeBinary.
func (w *BinWriter) WriteArray(arr []Serializable) {
	w.WriteVarUint(uint64(len(arr)))
	for _, el := range arr {
		if w.err != nil {
			return
		}
		el.EncodeBinary(w)
	}
}

// BinReader is the read-side counterpart of BinWriter.
type BinReader struct {
	r   io.Reader
	Err error
}

// NewBinReaderFromIO wraps an io.Reader.
func NewBinReaderFromIO(ior io.Reader) *BinReader {
	return &BinReader{r: bufio.NewReader(ior)}
}

// NewBinReaderFromBuf wraps a byte slice.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return NewBinReaderFromIO(bytes.NewReader(b))
}

func (r *BinReader) readLE(v interface{}) {
	if r.Err != nil {
		return
	}
	r.Err = binary.Read(r.r, binary.LittleEndian, v)
}

// ReadU64LE reads a little-endian uint64.
func (r *BinReader) ReadU64LE() (u64 uint64) {
	r.readLE(&u64)
	return
}

// ReadU32LE reads a little-endian uint32.
func (r *BinReader) ReadU32LE() (u32 uint32) {
	r.readLE(&u32)
	return
}

// ReadU16LE reads a little-endian uint16.
func (r *BinReader) ReadU16LE() (u16 uint16) {
	r.readLE(&u16)
	return
}

// ReadU16BE reads a big-endian uint16.
func (r *BinReader) ReadU16BE() (u16 uint16) {
	if r.Err != nil {
		return
	}
	r.Err = binary.Read(r.r, binary.BigEndian, &u16)
	return
}

// ReadB reads a single byte.
func (r *BinReader) ReadB() (b byte) {
	if r.Err != nil {
		return
	}
	var buf [1]byte
	_, r.Err = io.ReadFull(r.r, buf[:])
	return buf[0]
}

// ReadBool reads a single byte as a boolean.
func (r *BinReader) ReadBool() bool {
	return r.ReadB() != 0
}

// ReadBytes reads exactly len(buf) bytes into buf.
func (r *BinReader) ReadBytes(buf []byte) {
	if r.Err != nil {
		return
	}
	_, r.Err = io.ReadFull(r.r, buf)
}

// ReadVarUint reads a variable-length uint64 written by WriteVarUint.
func (r *BinReader) ReadVarUint() uint64 {
	b := r.ReadB()
	switch b {
	case 0xfd:
		return uint64(r.ReadU16LE())
	case 0xfe:
		return uint64(r.ReadU32LE())
	case 0xff:
		return r.ReadU64LE()
	default:
		return uint64(b)
	}
}

// ReadVarBytes reads a length-prefixed byte slice. An optional maxSize bounds
// the accepted length, failing the reader with ErrFrameTooLarge if exceeded.
func (r *BinReader) ReadVarBytes(maxSize ...int) []byte {
	n := r.ReadVarUint()
	if r.Err != nil {
		return []byte{}
	}
	if len(maxSize) > 0 && n > uint64(maxSize[0]) {
		r.Err = ErrFrameTooLarge
		return []byte{}
	}
	b := make([]byte, n)
	r.ReadBytes(b)
	if r.Err != nil {
		return []byte{}
	}
	return b
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *BinReader) ReadString() string {
	return string(r.ReadVarBytes())
}
