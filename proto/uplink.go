package proto

import "fmt"

// Uplink is a device → server message. The set of implementations is
// closed: Hello, Subscribe, Unsubscribe, Publish, StreamStart, StreamData,
// StreamClose, ButtonPress and SensorUpdate.
type Uplink interface {
	Tag() UplinkTag
	body
}

// body is the encoding contract shared by uplink and downlink variants.
type body interface {
	bodyLen() int
	validate() error
	encodeBody(w *Writer)
}

// Hello opens a session and carries the device identity.
type Hello struct {
	DeviceID uint64
}

// Subscribe asks the server to forward messages published on Topic.
type Subscribe struct {
	Topic string
}

// Unsubscribe cancels a previous Subscribe.
type Unsubscribe struct {
	Topic string
}

// Publish sends Data to every subscriber of Topic.
type Publish struct {
	Topic string
	Data  []byte
}

// StreamStart opens the caller-numbered stream StreamID towards TargetPeer.
type StreamStart struct {
	StreamID   uint8
	TargetPeer string
	Reason     string
}

// StreamData carries one chunk of an open stream.
type StreamData struct {
	StreamID uint8
	Data     []byte
}

// StreamClose ends a stream.
type StreamClose struct {
	StreamID uint8
}

// ButtonPress reports a classified button press.
type ButtonPress struct {
	ButtonID uint8
	Press    PressType
}

// SensorUpdate reports the latest reading of a named sensor.
type SensorUpdate struct {
	Name  string
	Value SensorValue
}

func (Hello) Tag() UplinkTag        { return TagHello }
func (Subscribe) Tag() UplinkTag    { return TagSubscribe }
func (Unsubscribe) Tag() UplinkTag  { return TagUnsubscribe }
func (Publish) Tag() UplinkTag      { return TagPublish }
func (StreamStart) Tag() UplinkTag  { return TagStreamStart }
func (StreamData) Tag() UplinkTag   { return TagStreamData }
func (StreamClose) Tag() UplinkTag  { return TagStreamClose }
func (ButtonPress) Tag() UplinkTag  { return TagButtonPress }
func (SensorUpdate) Tag() UplinkTag { return TagSensorUpdate }

func (m Hello) bodyLen() int       { return VarintLen(m.DeviceID) }
func (m Subscribe) bodyLen() int   { return stringLen(len(m.Topic)) }
func (m Unsubscribe) bodyLen() int { return stringLen(len(m.Topic)) }
func (m Publish) bodyLen() int     { return stringLen(len(m.Topic)) + stringLen(len(m.Data)) }
func (m StreamStart) bodyLen() int {
	return 1 + stringLen(len(m.TargetPeer)) + stringLen(len(m.Reason))
}
func (m StreamData) bodyLen() int  { return 1 + stringLen(len(m.Data)) }
func (m StreamClose) bodyLen() int { return 1 }
func (m ButtonPress) bodyLen() int { return 1 + VarintLen(uint64(m.Press)) }
func (m SensorUpdate) bodyLen() int {
	if m.Value == nil {
		return stringLen(len(m.Name))
	}
	return stringLen(len(m.Name)) + sensorLen(m.Value)
}

func (m Hello) validate() error       { return nil }
func (m Subscribe) validate() error   { return checkLen("topic", len(m.Topic), MaxTopicLen) }
func (m Unsubscribe) validate() error { return checkLen("topic", len(m.Topic), MaxTopicLen) }
func (m StreamClose) validate() error { return nil }

func (m Publish) validate() error {
	if err := checkLen("topic", len(m.Topic), MaxTopicLen); err != nil {
		return err
	}
	return checkLen("data", len(m.Data), MaxDataLen)
}

func (m StreamStart) validate() error {
	if err := checkLen("target peer", len(m.TargetPeer), MaxPeerIDLen); err != nil {
		return err
	}
	return checkLen("reason", len(m.Reason), MaxReasonLen)
}

func (m StreamData) validate() error {
	return checkLen("data", len(m.Data), MaxDataLen)
}

func (m ButtonPress) validate() error {
	if !m.Press.Valid() {
		return fmt.Errorf("%w: press type %d", ErrInvalidValue, m.Press)
	}
	return nil
}

func (m SensorUpdate) validate() error {
	if m.Value == nil {
		return fmt.Errorf("%w: sensor %q has no value", ErrNilMessage, m.Name)
	}
	return checkLen("sensor name", len(m.Name), MaxSensorNameLen)
}

func (m Hello) encodeBody(w *Writer)       { w.WriteVarint(m.DeviceID) }
func (m Subscribe) encodeBody(w *Writer)   { w.WriteString(m.Topic) }
func (m Unsubscribe) encodeBody(w *Writer) { w.WriteString(m.Topic) }
func (m StreamClose) encodeBody(w *Writer) { w.WriteUint8(m.StreamID) }

func (m Publish) encodeBody(w *Writer) {
	w.WriteString(m.Topic)
	w.WriteBytes(m.Data)
}

func (m StreamStart) encodeBody(w *Writer) {
	w.WriteUint8(m.StreamID)
	w.WriteString(m.TargetPeer)
	w.WriteString(m.Reason)
}

func (m StreamData) encodeBody(w *Writer) {
	w.WriteUint8(m.StreamID)
	w.WriteBytes(m.Data)
}

func (m ButtonPress) encodeBody(w *Writer) {
	w.WriteUint8(m.ButtonID)
	w.WriteVarint(uint64(m.Press))
}

func (m SensorUpdate) encodeBody(w *Writer) {
	w.WriteString(m.Name)
	writeSensor(w, m.Value)
}

// EncodeUplink encodes m into dst and returns the number of bytes written.
// The encoded size is checked against len(dst) before anything is written.
func EncodeUplink(dst []byte, m Uplink) (int, error) {
	if m == nil {
		return 0, ErrNilMessage
	}
	return encode(dst, uint64(m.Tag()), m, m.Tag().String())
}

// DecodeUplink parses one uplink datagram. Byte payloads in the result
// alias src.
func DecodeUplink(src []byte) (Uplink, error) {
	r := NewReader(src)
	tag, err := r.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("decode uplink tag: %w", err)
	}
	if tag > uint64(TagSensorUpdate) {
		return nil, fmt.Errorf("%w: uplink %d", ErrUnknownTag, tag)
	}
	m, err := decodeUplinkBody(UplinkTag(tag), r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", UplinkTag(tag), err)
	}
	return m, nil
}

func decodeUplinkBody(tag UplinkTag, r *Reader) (Uplink, error) {
	var err error
	switch tag {
	case TagHello:
		var m Hello
		m.DeviceID, err = r.ReadVarint()
		return m, err

	case TagSubscribe:
		var m Subscribe
		m.Topic, err = r.ReadString(MaxTopicLen)
		return m, err

	case TagUnsubscribe:
		var m Unsubscribe
		m.Topic, err = r.ReadString(MaxTopicLen)
		return m, err

	case TagPublish:
		var m Publish
		if m.Topic, err = r.ReadString(MaxTopicLen); err != nil {
			return nil, err
		}
		m.Data, err = r.ReadBytes(MaxDataLen)
		return m, err

	case TagStreamStart:
		var m StreamStart
		if m.StreamID, err = r.ReadUint8(); err != nil {
			return nil, err
		}
		if m.TargetPeer, err = r.ReadString(MaxPeerIDLen); err != nil {
			return nil, err
		}
		m.Reason, err = r.ReadString(MaxReasonLen)
		return m, err

	case TagStreamData:
		var m StreamData
		if m.StreamID, err = r.ReadUint8(); err != nil {
			return nil, err
		}
		m.Data, err = r.ReadBytes(MaxDataLen)
		return m, err

	case TagStreamClose:
		var m StreamClose
		m.StreamID, err = r.ReadUint8()
		return m, err

	case TagButtonPress:
		var m ButtonPress
		if m.ButtonID, err = r.ReadUint8(); err != nil {
			return nil, err
		}
		press, err := r.ReadVarint()
		if err != nil {
			return nil, err
		}
		if press > uint64(PressLong) {
			return nil, fmt.Errorf("%w: press type %d", ErrInvalidValue, press)
		}
		m.Press = PressType(press)
		return m, nil

	case TagSensorUpdate:
		var m SensorUpdate
		if m.Name, err = r.ReadString(MaxSensorNameLen); err != nil {
			return nil, err
		}
		m.Value, err = readSensor(r)
		return m, err
	}
	return nil, fmt.Errorf("%w: uplink %d", ErrUnknownTag, tag)
}

func encode(dst []byte, tag uint64, m body, name string) (int, error) {
	size := VarintLen(tag) + m.bodyLen()
	if size > len(dst) {
		return 0, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrCapacity, name, size, len(dst))
	}
	if err := m.validate(); err != nil {
		return 0, fmt.Errorf("encode %s: %w", name, err)
	}
	w := NewWriter(dst)
	w.WriteVarint(tag)
	m.encodeBody(w)
	if err := w.Err(); err != nil {
		return 0, fmt.Errorf("encode %s: %w", name, err)
	}
	return w.Len(), nil
}

func checkLen(field string, n, max int) error {
	if n > max {
		return fmt.Errorf("%w: %s is %d bytes, max %d", ErrFieldTooLong, field, n, max)
	}
	return nil
}
