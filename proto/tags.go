package proto

import "fmt"

// UplinkTag identifies a device → server message variant.
type UplinkTag uint8

const (
	TagHello UplinkTag = iota
	TagSubscribe
	TagUnsubscribe
	TagPublish
	TagStreamStart
	TagStreamData
	TagStreamClose
	TagButtonPress
	TagSensorUpdate
)

// UplinkNames maps uplink tags to names for logging and metrics labels.
var UplinkNames = map[UplinkTag]string{
	TagHello:        "hello",
	TagSubscribe:    "subscribe",
	TagUnsubscribe:  "unsubscribe",
	TagPublish:      "publish",
	TagStreamStart:  "stream_start",
	TagStreamData:   "stream_data",
	TagStreamClose:  "stream_close",
	TagButtonPress:  "button_press",
	TagSensorUpdate: "sensor_update",
}

func (t UplinkTag) String() string {
	if name, ok := UplinkNames[t]; ok {
		return name
	}
	return fmt.Sprintf("uplink(%d)", uint8(t))
}

// DownlinkTag identifies a server → device message variant.
type DownlinkTag uint8

const (
	TagWelcome DownlinkTag = iota
	TagError
	TagMessage
	TagSubscribeAck
	TagUnsubscribeAck
)

// DownlinkNames maps downlink tags to names for logging and metrics labels.
var DownlinkNames = map[DownlinkTag]string{
	TagWelcome:        "welcome",
	TagError:          "error",
	TagMessage:        "message",
	TagSubscribeAck:   "subscribe_ack",
	TagUnsubscribeAck: "unsubscribe_ack",
}

func (t DownlinkTag) String() string {
	if name, ok := DownlinkNames[t]; ok {
		return name
	}
	return fmt.Sprintf("downlink(%d)", uint8(t))
}

// PressType classifies a button press.
type PressType uint8

const (
	PressSingle PressType = iota
	PressDouble
	PressLong
)

func (p PressType) Valid() bool {
	return p <= PressLong
}

func (p PressType) String() string {
	switch p {
	case PressSingle:
		return "single"
	case PressDouble:
		return "double"
	case PressLong:
		return "long"
	}
	return fmt.Sprintf("press(%d)", uint8(p))
}

// Reason is the code carried by a downlink Error. The engine does not
// interpret it; the values below are the ones the AVI server emits.
type Reason uint8

const (
	ReasonUnknown         Reason = 0x00 // Unspecified failure
	ReasonNotIdentified   Reason = 0x01 // Message received before Hello
	ReasonInvalidMessage  Reason = 0x02 // Datagram failed to decode
	ReasonUnknownStream   Reason = 0x03 // Stream data/close for a stream never started
	ReasonPeerUnavailable Reason = 0x04 // Stream target peer is not connected
	ReasonServerBusy      Reason = 0x05 // Session limit reached
)

// ReasonNames maps reason codes to identifiers for logging.
var ReasonNames = map[Reason]string{
	ReasonUnknown:         "UNKNOWN",
	ReasonNotIdentified:   "NOT_IDENTIFIED",
	ReasonInvalidMessage:  "INVALID_MESSAGE",
	ReasonUnknownStream:   "UNKNOWN_STREAM",
	ReasonPeerUnavailable: "PEER_UNAVAILABLE",
	ReasonServerBusy:      "SERVER_BUSY",
}

func (r Reason) String() string {
	if name, ok := ReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("REASON_%d", uint8(r))
}
