package proto

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader decodes AVI fields sequentially from a byte slice without copying.
// It never reads past the end of the slice.
type Reader struct {
	data   []byte
	offset int
}

// NewReader wraps data for decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// need checks that at least n bytes remain and returns the current offset.
func (r *Reader) need(n uint64) (int, error) {
	if n > uint64(r.Remaining()) {
		return 0, ErrTruncated
	}
	off := r.offset
	r.offset += int(n)
	return off, nil
}

// ReadVarint reads a LEB128 varint.
func (r *Reader) ReadVarint() (uint64, error) {
	v, n, err := Varint(r.data[r.offset:])
	if err != nil {
		return 0, err
	}
	r.offset += n
	return v, nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	off, err := r.need(1)
	if err != nil {
		return 0, err
	}
	return r.data[off], nil
}

// ReadBool reads a one-byte bool. Bytes other than 0 and 1 are rejected.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: bool byte 0x%02x", ErrInvalidValue, b)
}

// ReadInt32 reads a 32-bit signed integer in little-endian order.
func (r *Reader) ReadInt32() (int32, error) {
	off, err := r.need(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(r.data[off:])), nil
}

// ReadFloat32 reads a 32-bit IEEE 754 float in little-endian order.
func (r *Reader) ReadFloat32() (float32, error) {
	off, err := r.need(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(r.data[off:])), nil
}

// ReadBytes reads a length-prefixed byte slice of at most max bytes. The
// result is a sub-slice of the Reader's input (zero-copy) and is nil when
// the field is empty.
func (r *Reader) ReadBytes(max int) ([]byte, error) {
	length, err := r.ReadVarint()
	if err != nil {
		return nil, err
	}
	if length > uint64(max) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFieldTooLong, length, max)
	}
	off, err := r.need(length)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	return r.data[off : off+int(length) : off+int(length)], nil
}

// ReadString reads a length-prefixed string of at most max bytes.
func (r *Reader) ReadString(max int) (string, error) {
	b, err := r.ReadBytes(max)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
