// Package proto implements the AVI wire format: a compact, postcard-style
// binary encoding of the messages exchanged between a device and the AVI
// server over a datagram transport.
//
// Every datagram is a varint variant tag followed by the variant body.
// Integers that vary in size (tags, lengths, device ids, press types, sensor
// tags) are LEB128 varints. Strings and byte payloads are a varint length
// followed by the raw bytes. Fixed-width scalars are written verbatim, and
// multi-byte scalars (float32, int32) are little-endian.
package proto

// Size limits of the wire format. Encoding rejects messages that do not fit
// the destination buffer, decoding rejects fields longer than their bound.
const (
	MaxPacketSize    = 1024
	MaxTopicLen      = 128
	MaxDataLen       = 512
	MaxPeerIDLen     = 64
	MaxReasonLen     = 128
	MaxSensorNameLen = 64
)
