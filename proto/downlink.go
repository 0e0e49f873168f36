package proto

import "fmt"

// Downlink is a server → device message: Welcome, Error, Message,
// SubscribeAck or UnsubscribeAck.
type Downlink interface {
	Tag() DownlinkTag
	body
}

// Welcome completes the handshake. It has no body.
type Welcome struct{}

// Error reports a server-side failure. The code is not interpreted by the
// device.
type Error struct {
	Reason Reason
}

// Message delivers a publish on a subscribed topic.
type Message struct {
	Topic string
	Data  []byte
}

// SubscribeAck confirms a Subscribe.
type SubscribeAck struct {
	Topic string
}

// UnsubscribeAck confirms an Unsubscribe.
type UnsubscribeAck struct {
	Topic string
}

func (Welcome) Tag() DownlinkTag        { return TagWelcome }
func (Error) Tag() DownlinkTag          { return TagError }
func (Message) Tag() DownlinkTag        { return TagMessage }
func (SubscribeAck) Tag() DownlinkTag   { return TagSubscribeAck }
func (UnsubscribeAck) Tag() DownlinkTag { return TagUnsubscribeAck }

func (m Welcome) bodyLen() int        { return 0 }
func (m Error) bodyLen() int          { return 1 }
func (m Message) bodyLen() int        { return stringLen(len(m.Topic)) + stringLen(len(m.Data)) }
func (m SubscribeAck) bodyLen() int   { return stringLen(len(m.Topic)) }
func (m UnsubscribeAck) bodyLen() int { return stringLen(len(m.Topic)) }

func (m Welcome) validate() error        { return nil }
func (m Error) validate() error          { return nil }
func (m SubscribeAck) validate() error   { return checkLen("topic", len(m.Topic), MaxTopicLen) }
func (m UnsubscribeAck) validate() error { return checkLen("topic", len(m.Topic), MaxTopicLen) }

func (m Message) validate() error {
	if err := checkLen("topic", len(m.Topic), MaxTopicLen); err != nil {
		return err
	}
	return checkLen("data", len(m.Data), MaxDataLen)
}

func (m Welcome) encodeBody(w *Writer)        {}
func (m Error) encodeBody(w *Writer)          { w.WriteUint8(uint8(m.Reason)) }
func (m SubscribeAck) encodeBody(w *Writer)   { w.WriteString(m.Topic) }
func (m UnsubscribeAck) encodeBody(w *Writer) { w.WriteString(m.Topic) }

func (m Message) encodeBody(w *Writer) {
	w.WriteString(m.Topic)
	w.WriteBytes(m.Data)
}

// EncodeDownlink encodes m into dst and returns the number of bytes written.
func EncodeDownlink(dst []byte, m Downlink) (int, error) {
	if m == nil {
		return 0, ErrNilMessage
	}
	return encode(dst, uint64(m.Tag()), m, m.Tag().String())
}

// DecodeDownlink parses one downlink datagram. Message.Data aliases src.
func DecodeDownlink(src []byte) (Downlink, error) {
	r := NewReader(src)
	tag, err := r.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("decode downlink tag: %w", err)
	}
	if tag > uint64(TagUnsubscribeAck) {
		return nil, fmt.Errorf("%w: downlink %d", ErrUnknownTag, tag)
	}
	m, err := decodeDownlinkBody(DownlinkTag(tag), r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", DownlinkTag(tag), err)
	}
	return m, nil
}

func decodeDownlinkBody(tag DownlinkTag, r *Reader) (Downlink, error) {
	var err error
	switch tag {
	case TagWelcome:
		return Welcome{}, nil

	case TagError:
		var m Error
		code, err := r.ReadUint8()
		m.Reason = Reason(code)
		return m, err

	case TagMessage:
		var m Message
		if m.Topic, err = r.ReadString(MaxTopicLen); err != nil {
			return nil, err
		}
		m.Data, err = r.ReadBytes(MaxDataLen)
		return m, err

	case TagSubscribeAck:
		var m SubscribeAck
		m.Topic, err = r.ReadString(MaxTopicLen)
		return m, err

	case TagUnsubscribeAck:
		var m UnsubscribeAck
		m.Topic, err = r.ReadString(MaxTopicLen)
		return m, err
	}
	return nil, fmt.Errorf("%w: downlink %d", ErrUnknownTag, tag)
}
