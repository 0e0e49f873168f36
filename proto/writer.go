package proto

import (
	"encoding/binary"
	"math"
)

// Writer encodes AVI fields into a fixed-capacity byte slice. It never
// grows the slice and never writes past its length. The first write that
// does not fit sets a sticky ErrCapacity and every later write is a no-op.
type Writer struct {
	buf []byte
	off int
	err error
}

// NewWriter returns a Writer over buf. The capacity is len(buf).
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.off
}

// Bytes returns the encoded bytes.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.off]
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

// Reset rewinds the writer so the buffer can be reused.
func (w *Writer) Reset() {
	w.off = 0
	w.err = nil
}

// reserve checks that n more bytes fit and returns the write offset.
func (w *Writer) reserve(n int) (int, bool) {
	if w.err != nil {
		return 0, false
	}
	if len(w.buf)-w.off < n {
		w.err = ErrCapacity
		return 0, false
	}
	off := w.off
	w.off += n
	return off, true
}

// WriteVarint appends v as a LEB128 varint.
func (w *Writer) WriteVarint(v uint64) {
	off, ok := w.reserve(VarintLen(v))
	if !ok {
		return
	}
	binary.PutUvarint(w.buf[off:], v)
}

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) {
	off, ok := w.reserve(1)
	if !ok {
		return
	}
	w.buf[off] = v
}

// WriteBool appends a bool as one byte, 0 or 1.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
		return
	}
	w.WriteUint8(0)
}

// WriteInt32 appends a 32-bit signed integer in little-endian order.
func (w *Writer) WriteInt32(v int32) {
	off, ok := w.reserve(4)
	if !ok {
		return
	}
	binary.LittleEndian.PutUint32(w.buf[off:], uint32(v))
}

// WriteFloat32 appends a 32-bit IEEE 754 float in little-endian order.
func (w *Writer) WriteFloat32(v float32) {
	off, ok := w.reserve(4)
	if !ok {
		return
	}
	binary.LittleEndian.PutUint32(w.buf[off:], math.Float32bits(v))
}

// WriteString appends a length-prefixed string. The length prefix and the
// bytes are checked against the remaining capacity together.
func (w *Writer) WriteString(s string) {
	off, ok := w.reserve(VarintLen(uint64(len(s))) + len(s))
	if !ok {
		return
	}
	n := binary.PutUvarint(w.buf[off:], uint64(len(s)))
	copy(w.buf[off+n:], s)
}

// WriteBytes appends a length-prefixed byte slice.
func (w *Writer) WriteBytes(p []byte) {
	off, ok := w.reserve(VarintLen(uint64(len(p))) + len(p))
	if !ok {
		return
	}
	n := binary.PutUvarint(w.buf[off:], uint64(len(p)))
	copy(w.buf[off+n:], p)
}

// stringLen is the encoded size of a length-prefixed field of n bytes.
func stringLen(n int) int {
	return VarintLen(uint64(n)) + n
}
