package server

import (
	"log/slog"
	"net"

	"github.com/mbocsi/avi/proto"
)

type UDPClient struct {
	DeviceMetadata
	conn  *net.UDPConn
	raddr *net.UDPAddr
}

func NewUDPClient(conn *net.UDPConn, raddr *net.UDPAddr, t Transport) *UDPClient {
	return &UDPClient{
		conn:           conn,
		raddr:          raddr,
		DeviceMetadata: newDeviceMetadata("udp", raddr.String(), t),
	}
}

func (c *UDPClient) Send(msg proto.Downlink) error {
	data, err := encodeDownlink(msg)
	if err != nil {
		return err
	}
	if _, err := c.conn.WriteToUDP(data, c.raddr); err != nil {
		return err
	}

	slog.Debug("Sent UDP datagram", "to", c.Id, "type", msg.Tag(), "size", len(data))
	return nil
}

func (c *UDPClient) Meta() *DeviceMetadata {
	return &c.DeviceMetadata
}
