package server

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mbocsi/avi/proto"
)

// Handle processes one decoded message from client.
func (c *Coordinator) Handle(client Client, msg proto.Uplink) {
	start := time.Now()
	c.Metrics.uplink(msg.Tag())
	defer func() { c.Metrics.observe(msg.Tag(), time.Since(start).Seconds()) }()

	meta := client.Meta()
	meta.touch()

	if hello, ok := msg.(proto.Hello); ok {
		c.handleHello(client, hello)
		return
	}

	meta.Mu.RLock()
	identified := meta.Identified
	meta.Mu.RUnlock()
	if !identified {
		slog.Warn("Message from unidentified client", "client", meta.Id, "type", msg.Tag())
		c.sendError(client, proto.ReasonNotIdentified)
		return
	}

	switch m := msg.(type) {
	case proto.Subscribe:
		c.handleSubscribe(client, m.Topic)

	case proto.Unsubscribe:
		c.handleUnsubscribe(client, m.Topic)

	case proto.Publish:
		c.handlePublish(client, m)

	case proto.StreamStart:
		c.handleStreamStart(client, m)

	case proto.StreamData:
		c.handleStreamData(client, m)

	case proto.StreamClose:
		c.handleStreamClose(client, m)

	case proto.ButtonPress:
		c.handleButton(client, m)

	case proto.SensorUpdate:
		c.handleSensor(client, m)

	default:
		slog.Warn("Unhandled message type", "type", msg.Tag(), "sender", meta.Id)
	}
}

// ---------- session ---------- //

func (c *Coordinator) handleHello(client Client, m proto.Hello) {
	meta := client.Meta()
	meta.Mu.Lock()
	meta.DeviceID = m.DeviceID
	meta.Identified = true
	meta.Mu.Unlock()

	if old, replaced := c.Registery.Store(client); replaced {
		slog.Info("Device reconnected, replacing old session", "peer", PeerID(m.DeviceID), "old", old.Meta().Id, "new", meta.Id)
		c.Broker.UnsubscribeAll(old)
	}
	c.Metrics.setDevices(c.Registery.Len())

	slog.Info("Registered client", "id", meta.Id, "peer", PeerID(m.DeviceID), "addr", meta.Addr)
	c.send(client, proto.Welcome{})
}

// ---------- pub/sub ---------- //

func (c *Coordinator) handleSubscribe(client Client, topic string) {
	c.Broker.Subscribe(topic, client)
	meta := client.Meta()
	meta.Mu.Lock()
	meta.Subs[topic] = struct{}{}
	meta.Mu.Unlock()
	c.send(client, proto.SubscribeAck{Topic: topic})
}

func (c *Coordinator) handleUnsubscribe(client Client, topic string) {
	c.Broker.Unsubscribe(topic, client)
	meta := client.Meta()
	meta.Mu.Lock()
	delete(meta.Subs, topic)
	meta.Mu.Unlock()
	c.send(client, proto.UnsubscribeAck{Topic: topic})
}

func (c *Coordinator) handlePublish(client Client, m proto.Publish) {
	n := c.Broker.Publish(m.Topic, m.Data)
	c.countDownlinks(proto.TagMessage, n)

	slog.Debug("Data forwarded",
		"topic", m.Topic,
		"sender", client.Meta().Id,
		"bytes", len(m.Data),
		"subscribers", n,
	)
}

// ---------- streams ---------- //

// StreamTopic is the topic a relayed stream event is delivered on.
func StreamTopic(source string, id uint8, event string) string {
	return fmt.Sprintf("stream/%s/%d/%s", source, id, event)
}

// peer resolves a peer id to a connected session.
func (c *Coordinator) peer(peerID string) (Client, bool) {
	deviceID, err := strconv.ParseUint(peerID, 16, 64)
	if err != nil {
		return nil, false
	}
	return c.Registery.GetByDevice(deviceID)
}

func (c *Coordinator) handleStreamStart(client Client, m proto.StreamStart) {
	meta := client.Meta()
	target, ok := c.peer(m.TargetPeer)
	if !ok {
		slog.Warn("Stream target not connected", "source", meta.Id, "target", m.TargetPeer, "stream", m.StreamID)
		c.sendError(client, proto.ReasonPeerUnavailable)
		return
	}

	meta.Mu.Lock()
	meta.Streams[m.StreamID] = &StreamInfo{Target: m.TargetPeer, Reason: m.Reason, Started: time.Now()}
	meta.Mu.Unlock()

	source := meta.PeerID()
	slog.Info("Stream started", "source", source, "target", m.TargetPeer, "stream", m.StreamID, "reason", m.Reason)
	msg := proto.Message{Topic: StreamTopic(source, m.StreamID, "start"), Data: []byte(m.Reason)}
	if err := c.send(target, msg); err != nil {
		c.sendError(client, proto.ReasonPeerUnavailable)
	}
}

func (c *Coordinator) stream(client Client, id uint8) (*StreamInfo, bool) {
	meta := client.Meta()
	meta.Mu.RLock()
	defer meta.Mu.RUnlock()
	s, ok := meta.Streams[id]
	return s, ok
}

func (c *Coordinator) handleStreamData(client Client, m proto.StreamData) {
	s, ok := c.stream(client, m.StreamID)
	if !ok {
		c.sendError(client, proto.ReasonUnknownStream)
		return
	}
	target, ok := c.peer(s.Target)
	if !ok {
		c.sendError(client, proto.ReasonPeerUnavailable)
		return
	}

	meta := client.Meta()
	msg := proto.Message{Topic: StreamTopic(meta.PeerID(), m.StreamID, "data"), Data: m.Data}
	if err := c.send(target, msg); err != nil {
		c.sendError(client, proto.ReasonPeerUnavailable)
		return
	}

	meta.Mu.Lock()
	s.Chunks++
	s.Bytes += len(m.Data)
	meta.Mu.Unlock()
	c.Metrics.relayed(len(m.Data))
}

func (c *Coordinator) handleStreamClose(client Client, m proto.StreamClose) {
	s, ok := c.stream(client, m.StreamID)
	if !ok {
		c.sendError(client, proto.ReasonUnknownStream)
		return
	}
	meta := client.Meta()
	meta.Mu.Lock()
	delete(meta.Streams, m.StreamID)
	chunks, bytes := s.Chunks, s.Bytes
	meta.Mu.Unlock()

	source := meta.PeerID()
	slog.Info("Stream closed", "source", source, "target", s.Target, "stream", m.StreamID, "chunks", chunks, "bytes", bytes)
	if target, ok := c.peer(s.Target); ok {
		c.send(target, proto.Message{Topic: StreamTopic(source, m.StreamID, "close")})
	}
}

// ---------- device events ---------- //

func (c *Coordinator) handleButton(client Client, m proto.ButtonPress) {
	peer := client.Meta().PeerID()
	slog.Info("Button press", "peer", peer, "button", m.ButtonID, "press", m.Press)
	topic := fmt.Sprintf("device/%s/button", peer)
	n := c.Broker.Publish(topic, []byte{m.ButtonID, byte(m.Press)})
	c.countDownlinks(proto.TagMessage, n)
}

func (c *Coordinator) handleSensor(client Client, m proto.SensorUpdate) {
	meta := client.Meta()
	meta.Mu.Lock()
	meta.Sensors[m.Name] = SensorReading{Value: m.Value, Updated: time.Now()}
	meta.Mu.Unlock()

	peer := meta.PeerID()
	slog.Debug("Sensor update", "peer", peer, "sensor", m.Name, "kind", m.Value.Kind(), "value", m.Value.String())
	topic := fmt.Sprintf("device/%s/sensor/%s", peer, m.Name)
	n := c.Broker.Publish(topic, []byte(m.Value.String()))
	c.countDownlinks(proto.TagMessage, n)
}
