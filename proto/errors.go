package proto

import "errors"

var (
	// ErrCapacity is returned when an encoded message would not fit the
	// destination buffer. Nothing is written in that case.
	ErrCapacity = errors.New("avi: message exceeds buffer capacity")

	// ErrFieldTooLong is returned when a string or byte field is longer than
	// its wire bound, both on encode (argument error) and decode.
	ErrFieldTooLong = errors.New("avi: field exceeds maximum length")

	// ErrTruncated is returned when the input ends in the middle of a field.
	ErrTruncated = errors.New("avi: truncated message")

	// ErrVarintOverflow is returned for a varint that does not fit in 64 bits.
	ErrVarintOverflow = errors.New("avi: varint overflows 64 bits")

	// ErrUnknownTag is returned for a variant tag outside the enumeration of
	// the decoded direction.
	ErrUnknownTag = errors.New("avi: unknown message tag")

	// ErrInvalidValue is returned for a syntactically complete field holding a
	// value outside its domain (press type, sensor tag, bool byte).
	ErrInvalidValue = errors.New("avi: invalid field value")

	// ErrNilMessage is returned when asked to encode a nil message or value.
	ErrNilMessage = errors.New("avi: nil message")
)
