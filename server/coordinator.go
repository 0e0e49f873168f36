package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mbocsi/avi/proto"
)

type Coordinator struct {
	Registery  *DeviceRegistry
	Broker     *Broker
	Metrics    *Metrics
	Transports []Transport
}

func NewCoordinator(registery *DeviceRegistry, broker *Broker, metrics *Metrics) *Coordinator {
	return &Coordinator{Registery: registery, Broker: broker, Metrics: metrics}
}

// Start runs every registered transport until ctx is cancelled, then shuts
// them down.
func (c *Coordinator) Start(ctx context.Context) error {
	for _, t := range c.Transports {
		go func(t Transport) {
			if err := t.Start(); err != nil {
				slog.Error("Transport stopped with error", "transport", t.Meta().ID, "error", err.Error())
			}
		}(t)
	}

	<-ctx.Done()
	slog.Info("Shutting down transports and server")

	for _, t := range c.Transports {
		if err := t.Shutdown(); err != nil {
			slog.Error("There was an error when shutting down transport server", "error", err.Error())
		}
	}
	return nil
}

func (c *Coordinator) RegisterTransport(t Transport) {
	t.OnMessage(c.Handle)
	t.OnInvalid(c.HandleInvalid)
	t.OnDisconnect(c.Unregister)
	c.Transports = append(c.Transports, t)
}

// Unregister drops a closed or expired session.
func (c *Coordinator) Unregister(client Client) {
	c.Broker.UnsubscribeAll(client)
	c.Registery.Delete(client.Meta().Id)
	c.Metrics.setDevices(c.Registery.Len())
	slog.Info("Unregistered client", "id", client.Meta().Id, "peer", client.Meta().PeerID())
}

// HandleInvalid answers an undecodable datagram with Error(invalid message).
func (c *Coordinator) HandleInvalid(client Client, err error) {
	c.Metrics.decodeError()
	slog.Warn("Undecodable datagram", "client", client.Meta().Id, "error", err.Error())
	c.sendError(client, proto.ReasonInvalidMessage)
}

// PublishFromServer publishes on behalf of the server itself and returns
// the number of subscribers reached.
func (c *Coordinator) PublishFromServer(topic string, data []byte) (int, error) {
	if len(topic) > proto.MaxTopicLen {
		return 0, fmt.Errorf("%w: topic is %d bytes, max %d", proto.ErrFieldTooLong, len(topic), proto.MaxTopicLen)
	}
	if len(data) > proto.MaxDataLen {
		return 0, fmt.Errorf("%w: data is %d bytes, max %d", proto.ErrFieldTooLong, len(data), proto.MaxDataLen)
	}
	n := c.Broker.Publish(topic, data)
	c.countDownlinks(proto.TagMessage, n)
	slog.Info("Server publish", "topic", topic, "size", len(data), "subscribers", n)
	return n, nil
}

func (c *Coordinator) send(client Client, msg proto.Downlink) error {
	if err := client.Send(msg); err != nil {
		slog.Warn("Failed to send to client", "client", client.Meta().Id, "type", msg.Tag(), "error", err.Error())
		return err
	}
	c.Metrics.downlink(msg.Tag())
	return nil
}

func (c *Coordinator) sendError(client Client, reason proto.Reason) {
	c.send(client, proto.Error{Reason: reason})
}

func (c *Coordinator) countDownlinks(tag proto.DownlinkTag, n int) {
	for i := 0; i < n; i++ {
		c.Metrics.downlink(tag)
	}
}
