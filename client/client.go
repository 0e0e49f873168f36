// Package client is the device side of the AVI protocol: a session state
// machine, a poll-driven dispatch loop and typed operations over a
// datagram Transport.
//
// A Client is not safe for concurrent use. All calls must come from one
// goroutine, or be serialized by the caller (see features.Runtime).
package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mbocsi/avi/proto"
)

// MessageHandler receives topic messages from Poll. data aliases the
// receive buffer and is only valid until the next call to Poll.
type MessageHandler func(topic string, data []byte)

type Client struct {
	deviceID  uint64
	transport Transport
	handler   MessageHandler
	state     State

	// scratch holds outgoing datagrams; every operation overwrites it.
	scratch []byte
	rx      []byte

	logger  *slog.Logger
	onError func(proto.Reason)
	onAck   func(topic string, subscribed bool)
}

type Option func(*Client)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithErrorHandler is called for every Error received by Poll.
func WithErrorHandler(fn func(proto.Reason)) Option {
	return func(c *Client) { c.onError = fn }
}

// WithAckHandler is called for every SubscribeAck and UnsubscribeAck.
// Acks are not matched against outstanding requests.
func WithAckHandler(fn func(topic string, subscribed bool)) Option {
	return func(c *Client) { c.onAck = fn }
}

// WithPacketSize sets the size of the scratch buffers.
func WithPacketSize(n int) Option {
	return func(c *Client) {
		c.scratch = make([]byte, n)
		c.rx = make([]byte, n)
	}
}

// New returns a disconnected client for deviceID. handler may be nil.
func New(deviceID uint64, t Transport, handler MessageHandler, opts ...Option) (*Client, error) {
	if t == nil {
		return nil, errors.New("avi: nil transport")
	}
	c := &Client{
		deviceID:  deviceID,
		transport: t,
		handler:   handler,
		state:     Disconnected,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.scratch == nil {
		c.scratch = make([]byte, proto.MaxPacketSize)
		c.rx = make([]byte, proto.MaxPacketSize)
	}
	if len(c.scratch) < proto.MaxPacketSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrPacketSize, len(c.scratch), proto.MaxPacketSize)
	}
	return c, nil
}

func (c *Client) DeviceID() uint64 { return c.deviceID }

func (c *Client) State() State { return c.state }

func (c *Client) IsConnected() bool { return c.state == Connected }

// SetErrorHandler replaces the handler installed by WithErrorHandler and
// returns the previous one.
func (c *Client) SetErrorHandler(fn func(proto.Reason)) func(proto.Reason) {
	prev := c.onError
	c.onError = fn
	return prev
}

// Reset marks the session as lost without closing the transport. The next
// Connect sends a fresh Hello.
func (c *Client) Reset() {
	if c.state != Disconnected {
		c.logger.Info("Session reset", "device_id", fmt.Sprintf("%016x", c.deviceID))
	}
	c.state = Disconnected
}

// Connect sends Hello and waits up to timeout for the server's Welcome.
// It does not retry; on any failure the client is left Disconnected.
func (c *Client) Connect(timeout time.Duration) error {
	c.state = AwaitingWelcome
	c.logger.Info("Connecting", "device_id", fmt.Sprintf("%016x", c.deviceID))

	if err := c.send(proto.Hello{DeviceID: c.deviceID}); err != nil {
		c.state = Disconnected
		return fmt.Errorf("send hello: %w", err)
	}

	n, err := c.transport.Receive(c.rx, timeout)
	if err != nil {
		c.state = Disconnected
		if errors.Is(err, ErrWouldBlock) {
			c.logger.Warn("Connect timed out", "timeout", timeout)
			return ErrConnectTimeout
		}
		return fmt.Errorf("receive welcome: %w", err)
	}

	msg, err := proto.DecodeDownlink(c.rx[:n])
	if err != nil {
		c.state = Disconnected
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if _, ok := msg.(proto.Welcome); !ok {
		c.state = Disconnected
		if e, ok := msg.(proto.Error); ok {
			c.logger.Warn("Server rejected hello", "reason", e.Reason)
			return fmt.Errorf("%w: server error %s", ErrHandshake, e.Reason)
		}
		return fmt.Errorf("%w: expected welcome, got %s", ErrHandshake, msg.Tag())
	}

	c.state = Connected
	c.logger.Info("Connected", "device_id", fmt.Sprintf("%016x", c.deviceID))
	return nil
}

// Poll performs exactly one receive bounded by timeout and dispatches the
// datagram, if any. No data is not an error. Protocol errors from the
// server are reported to the error handler, not returned.
func (c *Client) Poll(timeout time.Duration) error {
	n, err := c.transport.Receive(c.rx, timeout)
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return nil
		}
		return fmt.Errorf("receive: %w", err)
	}

	msg, err := proto.DecodeDownlink(c.rx[:n])
	if err != nil {
		c.logger.Warn("Dropping undecodable datagram", "size", n, "error", err)
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	c.logger.Debug("Message received", "type", msg.Tag(), "size", n)

	switch m := msg.(type) {
	case proto.Welcome:
		if c.state != Connected {
			c.logger.Info("Unsolicited welcome, now connected")
		}
		c.state = Connected

	case proto.Error:
		c.logger.Warn("Server error", "reason", m.Reason)
		if c.onError != nil {
			c.onError(m.Reason)
		}

	case proto.Message:
		if c.handler != nil {
			c.handler(m.Topic, m.Data)
		} else {
			c.logger.Debug("No message handler: Ignoring message", "topic", m.Topic)
		}

	case proto.SubscribeAck:
		c.logger.Debug("Subscribe acknowledged", "topic", m.Topic)
		if c.onAck != nil {
			c.onAck(m.Topic, true)
		}

	case proto.UnsubscribeAck:
		c.logger.Debug("Unsubscribe acknowledged", "topic", m.Topic)
		if c.onAck != nil {
			c.onAck(m.Topic, false)
		}
	}
	return nil
}

func (c *Client) Subscribe(topic string) error {
	return c.op(proto.Subscribe{Topic: topic})
}

func (c *Client) Unsubscribe(topic string) error {
	return c.op(proto.Unsubscribe{Topic: topic})
}

func (c *Client) Publish(topic string, data []byte) error {
	return c.op(proto.Publish{Topic: topic, Data: data})
}

// StartStream opens stream id towards peer. The client keeps no stream
// state; ids are managed by the caller.
func (c *Client) StartStream(id uint8, peer, reason string) error {
	return c.op(proto.StreamStart{StreamID: id, TargetPeer: peer, Reason: reason})
}

func (c *Client) SendStreamData(id uint8, data []byte) error {
	return c.op(proto.StreamData{StreamID: id, Data: data})
}

func (c *Client) CloseStream(id uint8) error {
	return c.op(proto.StreamClose{StreamID: id})
}

func (c *Client) ReportButton(id uint8, press proto.PressType) error {
	return c.op(proto.ButtonPress{ButtonID: id, Press: press})
}

func (c *Client) UpdateSensor(name string, value proto.SensorValue) error {
	return c.op(proto.SensorUpdate{Name: name, Value: value})
}

// Close closes the transport if it implements io.Closer and marks the
// client Disconnected.
func (c *Client) Close() error {
	c.state = Disconnected
	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// op sends m if connected. Transport errors are returned unchanged.
func (c *Client) op(m proto.Uplink) error {
	if c.state != Connected {
		return ErrNotConnected
	}
	return c.send(m)
}

func (c *Client) send(m proto.Uplink) error {
	n, err := proto.EncodeUplink(c.scratch, m)
	if err != nil {
		return err
	}
	return c.transport.Send(c.scratch[:n])
}
