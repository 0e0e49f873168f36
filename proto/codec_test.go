package proto

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func encodeUplink(t *testing.T, m Uplink) []byte {
	t.Helper()
	buf := make([]byte, MaxPacketSize)
	n, err := EncodeUplink(buf, m)
	if err != nil {
		t.Fatalf("EncodeUplink(%T): %v", m, err)
	}
	return buf[:n]
}

func encodeDownlink(t *testing.T, m Downlink) []byte {
	t.Helper()
	buf := make([]byte, MaxPacketSize)
	n, err := EncodeDownlink(buf, m)
	if err != nil {
		t.Fatalf("EncodeDownlink(%T): %v", m, err)
	}
	return buf[:n]
}

func TestUplink_RoundTrip(t *testing.T) {
	messages := []Uplink{
		Hello{DeviceID: 0x0123456789ABCDEF},
		Subscribe{Topic: "device/led/control"},
		Unsubscribe{Topic: "device/led/control"},
		Publish{Topic: "status", Data: []byte("ok")},
		StreamStart{StreamID: 7, TargetPeer: "00000000000004d2", Reason: "voice"},
		StreamData{StreamID: 7, Data: []byte{0x00, 0x01, 0x02}},
		StreamClose{StreamID: 7},
		ButtonPress{ButtonID: 3, Press: PressLong},
		SensorUpdate{Name: "temp", Value: Temperature(21.5)},
		SensorUpdate{Name: "hum", Value: Humidity(40.25)},
		SensorUpdate{Name: "battery", Value: Battery(87)},
		SensorUpdate{Name: "door", Value: Status(true)},
		SensorUpdate{Name: "adc", Value: Raw(-42)},
	}

	for _, m := range messages {
		wire := encodeUplink(t, m)
		got, err := DecodeUplink(wire)
		if err != nil {
			t.Errorf("DecodeUplink(%T): %v", m, err)
			continue
		}
		if !reflect.DeepEqual(got, m) {
			t.Errorf("Round trip mismatch: expected %#v, got %#v", m, got)
		}
		if wire[0] != byte(m.Tag()) {
			t.Errorf("Expected tag byte %d for %T, got %d", m.Tag(), m, wire[0])
		}
	}
}

func TestDownlink_RoundTrip(t *testing.T) {
	messages := []Downlink{
		Welcome{},
		Error{Reason: ReasonPeerUnavailable},
		Message{Topic: "cmd", Data: []byte{0x01}},
		SubscribeAck{Topic: "a/b"},
		UnsubscribeAck{Topic: "a/b"},
	}

	for _, m := range messages {
		wire := encodeDownlink(t, m)
		got, err := DecodeDownlink(wire)
		if err != nil {
			t.Errorf("DecodeDownlink(%T): %v", m, err)
			continue
		}
		if !reflect.DeepEqual(got, m) {
			t.Errorf("Round trip mismatch: expected %#v, got %#v", m, got)
		}
	}
}

func TestEncode_PublishBytes(t *testing.T) {
	wire := encodeUplink(t, Publish{Topic: "status", Data: []byte("ok")})

	expected := []byte{0x03, 0x06, 's', 't', 'a', 't', 'u', 's', 0x02, 'o', 'k'}
	if !bytes.Equal(wire, expected) {
		t.Errorf("Expected % x, got % x", expected, wire)
	}
}

func TestEncode_HelloBytes(t *testing.T) {
	wire := encodeUplink(t, Hello{DeviceID: 0x1234})

	expected := []byte{0x00, 0xB4, 0x24}
	if !bytes.Equal(wire, expected) {
		t.Errorf("Expected % x, got % x", expected, wire)
	}
}

func TestEncode_WelcomeIsTagOnly(t *testing.T) {
	wire := encodeDownlink(t, Welcome{})
	if !bytes.Equal(wire, []byte{0x00}) {
		t.Errorf("Expected single 0x00 byte, got % x", wire)
	}
}

func TestEncode_SensorLittleEndian(t *testing.T) {
	tests := []struct {
		value SensorValue
		wire  []byte
	}{
		// 1.0f = 0x3F800000
		{Temperature(1.0), []byte{0x00, 0x00, 0x00, 0x80, 0x3F}},
		{Humidity(-2.0), []byte{0x01, 0x00, 0x00, 0x00, 0xC0}},
		{Battery(200), []byte{0x02, 0xC8}},
		{Status(false), []byte{0x03, 0x00}},
		{Raw(0x01020304), []byte{0x04, 0x04, 0x03, 0x02, 0x01}},
		{Raw(-1), []byte{0x04, 0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		wire := encodeUplink(t, SensorUpdate{Name: "s", Value: tt.value})
		// tag, name length, name
		prefix := []byte{0x08, 0x01, 's'}
		expected := append(prefix, tt.wire...)
		if !bytes.Equal(wire, expected) {
			t.Errorf("%s(%v): expected % x, got % x", tt.value.Kind(), tt.value, expected, wire)
		}
	}
}

func TestEncode_ButtonPressBytes(t *testing.T) {
	wire := encodeUplink(t, ButtonPress{ButtonID: 2, Press: PressDouble})
	if !bytes.Equal(wire, []byte{0x07, 0x02, 0x01}) {
		t.Errorf("Expected 07 02 01, got % x", wire)
	}
}

func TestEncode_Capacity(t *testing.T) {
	buf := make([]byte, MaxPacketSize)
	_, err := EncodeUplink(buf, Publish{Topic: "x", Data: make([]byte, 2000)})
	if !errors.Is(err, ErrCapacity) {
		t.Errorf("Expected ErrCapacity for 2000-byte payload, got %v", err)
	}

	small := make([]byte, 4)
	_, err = EncodeUplink(small, Subscribe{Topic: "longer than four"})
	if !errors.Is(err, ErrCapacity) {
		t.Errorf("Expected ErrCapacity for small buffer, got %v", err)
	}
}

func TestEncode_NothingWrittenOnFailure(t *testing.T) {
	buf := bytes.Repeat([]byte{0xAA}, 8)
	if _, err := EncodeUplink(buf, Publish{Topic: "status", Data: []byte("too long")}); err == nil {
		t.Fatal("Expected error encoding into 8-byte buffer")
	}
	for i, b := range buf {
		if b != 0xAA {
			t.Fatalf("Byte %d modified on failed encode: % x", i, buf)
		}
	}
}

func TestEncode_FieldTooLong(t *testing.T) {
	buf := make([]byte, MaxPacketSize)

	tests := []Uplink{
		Subscribe{Topic: strings.Repeat("t", MaxTopicLen+1)},
		Publish{Topic: "t", Data: make([]byte, MaxDataLen+1)},
		StreamStart{StreamID: 1, TargetPeer: strings.Repeat("p", MaxPeerIDLen+1)},
		StreamStart{StreamID: 1, TargetPeer: "p", Reason: strings.Repeat("r", MaxReasonLen+1)},
		SensorUpdate{Name: strings.Repeat("n", MaxSensorNameLen+1), Value: Battery(1)},
	}
	for _, m := range tests {
		if _, err := EncodeUplink(buf, m); !errors.Is(err, ErrFieldTooLong) {
			t.Errorf("%T: expected ErrFieldTooLong, got %v", m, err)
		}
	}
}

func TestEncode_MaximumFields(t *testing.T) {
	m := Publish{Topic: strings.Repeat("t", MaxTopicLen), Data: make([]byte, MaxDataLen)}
	wire := encodeUplink(t, m)

	got, err := DecodeUplink(wire)
	if err != nil {
		t.Fatalf("Decode of maximum-size publish failed: %v", err)
	}
	if p := got.(Publish); len(p.Topic) != MaxTopicLen || len(p.Data) != MaxDataLen {
		t.Errorf("Expected topic %d and data %d bytes, got %d and %d", MaxTopicLen, MaxDataLen, len(p.Topic), len(p.Data))
	}
}

func TestEncode_InvalidArguments(t *testing.T) {
	buf := make([]byte, MaxPacketSize)

	if _, err := EncodeUplink(buf, nil); !errors.Is(err, ErrNilMessage) {
		t.Errorf("Expected ErrNilMessage for nil uplink, got %v", err)
	}
	if _, err := EncodeUplink(buf, SensorUpdate{Name: "x"}); !errors.Is(err, ErrNilMessage) {
		t.Errorf("Expected ErrNilMessage for missing sensor value, got %v", err)
	}
	if _, err := EncodeUplink(buf, ButtonPress{Press: PressType(9)}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for press type 9, got %v", err)
	}
}

func TestDecode_EmptyFields(t *testing.T) {
	got, err := DecodeDownlink([]byte{0x02, 0x00, 0x00})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	msg := got.(Message)
	if msg.Topic != "" || msg.Data != nil {
		t.Errorf("Expected empty topic and nil data, got %q %v", msg.Topic, msg.Data)
	}
}

func TestDecode_Truncated(t *testing.T) {
	tests := [][]byte{
		{},
		{0x03},                 // publish without topic length
		{0x03, 0x80},           // unterminated length varint
		{0x03, 0x06, 's', 't'}, // topic shorter than its prefix
		{0x05},                 // stream data without id
		{0x08, 0x01, 'x', 0x00, 0x00, 0x00},
	}
	for _, wire := range tests {
		if _, err := DecodeUplink(wire); !errors.Is(err, ErrTruncated) {
			t.Errorf("DecodeUplink(% x): expected ErrTruncated, got %v", wire, err)
		}
	}

	if _, err := DecodeDownlink([]byte{0x01}); !errors.Is(err, ErrTruncated) {
		t.Errorf("Expected ErrTruncated for error without reason, got %v", err)
	}
}

func TestDecode_FieldTooLong(t *testing.T) {
	// topic length 129
	wire := []byte{0x02, 0x81, 0x01}
	wire = append(wire, bytes.Repeat([]byte{'a'}, 129)...)

	if _, err := DecodeDownlink(wire); !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("Expected ErrFieldTooLong, got %v", err)
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	if _, err := DecodeUplink([]byte{0x09}); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Expected ErrUnknownTag for uplink 9, got %v", err)
	}
	if _, err := DecodeDownlink([]byte{0x05}); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Expected ErrUnknownTag for downlink 5, got %v", err)
	}
	// 0x100 must not alias to tag 0 after narrowing.
	if _, err := DecodeDownlink([]byte{0x80, 0x02}); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Expected ErrUnknownTag for downlink 256, got %v", err)
	}
}

func TestDecode_InvalidValues(t *testing.T) {
	tests := [][]byte{
		{0x07, 0x01, 0x03},                  // press type 3
		{0x08, 0x01, 'x', 0x05, 0x00},       // sensor tag 5
		{0x08, 0x01, 'x', 0x80, 0x02, 0x00}, // sensor tag 256
		{0x08, 0x01, 'x', 0x03, 0x02},       // status byte 2
	}
	for _, wire := range tests {
		if _, err := DecodeUplink(wire); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("DecodeUplink(% x): expected ErrInvalidValue, got %v", wire, err)
		}
	}
}

func TestDecode_TrailingBytesIgnored(t *testing.T) {
	wire := append(encodeUplink(t, StreamClose{StreamID: 4}), 0xDE, 0xAD)

	got, err := DecodeUplink(wire)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != (StreamClose{StreamID: 4}) {
		t.Errorf("Expected StreamClose{4}, got %#v", got)
	}
}

func TestDecode_PayloadAliasesInput(t *testing.T) {
	wire := encodeDownlink(t, Message{Topic: "cmd", Data: []byte{0x01}})

	got, err := DecodeDownlink(wire)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	wire[len(wire)-1] = 0x02
	if data := got.(Message).Data; data[0] != 0x02 {
		t.Errorf("Expected decoded payload to alias input, got % x", data)
	}
}

func TestReasonString(t *testing.T) {
	if ReasonServerBusy.String() != "SERVER_BUSY" {
		t.Errorf("Expected SERVER_BUSY, got %s", ReasonServerBusy)
	}
	if Reason(200).String() != "REASON_200" {
		t.Errorf("Expected REASON_200, got %s", Reason(200))
	}
}
