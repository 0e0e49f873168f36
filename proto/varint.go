package proto

import "encoding/binary"

// MaxVarintLen is the longest encoding of a 64-bit varint.
const MaxVarintLen = binary.MaxVarintLen64

// VarintLen returns the number of bytes v occupies as a varint.
func VarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// PutVarint writes v into dst and returns the number of bytes written, or 0
// if dst is too small to hold it.
func PutVarint(dst []byte, v uint64) int {
	if len(dst) < VarintLen(v) {
		return 0
	}
	return binary.PutUvarint(dst, v)
}

// Varint decodes a varint from the start of src and returns the value and
// the number of bytes consumed.
func Varint(src []byte) (uint64, int, error) {
	v, n := binary.Uvarint(src)
	switch {
	case n == 0:
		return 0, 0, ErrTruncated
	case n < 0:
		return 0, 0, ErrVarintOverflow
	}
	return v, n, nil
}
