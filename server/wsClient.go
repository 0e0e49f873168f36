package server

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mbocsi/avi/proto"
)

type WSClient struct {
	DeviceMetadata
	conn *websocket.Conn
	wmu  sync.Mutex // gorilla allows one concurrent writer
}

func NewWSClient(conn *websocket.Conn, addr string, t Transport) *WSClient {
	return &WSClient{
		conn:           conn,
		DeviceMetadata: newDeviceMetadata("ws", addr, t),
	}
}

func (c *WSClient) Send(msg proto.Downlink) error {
	data, err := encodeDownlink(msg)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	err = c.conn.WriteMessage(websocket.BinaryMessage, data)
	c.wmu.Unlock()
	if err != nil {
		return err
	}

	slog.Debug("Sent WebSocket Message", "to", c.Meta().Id, "type", msg.Tag(), "size", len(data))
	return nil
}

func (c *WSClient) Meta() *DeviceMetadata {
	return &c.DeviceMetadata
}
