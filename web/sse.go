package web

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbocsi/avi/proto"
	"github.com/mbocsi/avi/server"
)

// SSEConnection is one browser stream following a topic. It subscribes to
// the broker like a device session would.
type SSEConnection struct {
	meta   *server.DeviceMetadata
	topic  string
	events chan liveMessage
}

type liveMessage struct {
	Topic    string    `json:"topic"`
	Data     string    `json:"data"` // base64
	Received time.Time `json:"received"`
}

func (c *SSEConnection) Send(msg proto.Downlink) error {
	m, ok := msg.(proto.Message)
	if !ok {
		return nil
	}
	ev := liveMessage{
		Topic:    m.Topic,
		Data:     base64.StdEncoding.EncodeToString(m.Data),
		Received: time.Now(),
	}
	select {
	case c.events <- ev:
		return nil
	default:
		return fmt.Errorf("sse stream for %s is falling behind", c.topic)
	}
}

func (c *SSEConnection) Meta() *server.DeviceMetadata {
	return c.meta
}

func (w *WebClient) addSSEConnection(conn *SSEConnection) {
	w.sseMutex.Lock()
	defer w.sseMutex.Unlock()
	if w.sseConnections[conn.topic] == nil {
		w.sseConnections[conn.topic] = make(map[*SSEConnection]struct{})
	}
	w.sseConnections[conn.topic][conn] = struct{}{}
}

func (w *WebClient) removeSSEConnection(conn *SSEConnection) {
	w.sseMutex.Lock()
	defer w.sseMutex.Unlock()
	delete(w.sseConnections[conn.topic], conn)
	if len(w.sseConnections[conn.topic]) == 0 {
		delete(w.sseConnections, conn.topic)
	}
}

// SSECount returns the number of open streams on topic.
func (w *WebClient) SSECount(topic string) int {
	w.sseMutex.RLock()
	defer w.sseMutex.RUnlock()
	return len(w.sseConnections[topic])
}

// HandleTopicEvents streams Server-Sent Events for a specific topic
func (w *WebClient) HandleTopicEvents(wr http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "*")

	flusher, ok := wr.(http.Flusher)
	if !ok {
		slog.Error("Streaming unsupported", "topic", topic)
		http.Error(wr, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	conn := &SSEConnection{
		meta:   server.NewDeviceMetadata("sse", r.RemoteAddr),
		topic:  topic,
		events: make(chan liveMessage, 16),
	}
	if err := w.services.Messaging.Subscribe(topic, conn); err != nil {
		w.handleError(wr, err)
		return
	}
	w.addSSEConnection(conn)
	defer func() {
		w.services.Messaging.Unsubscribe(topic, conn)
		w.removeSSEConnection(conn)
	}()

	wr.Header().Set("Content-Type", "text/event-stream")
	wr.Header().Set("Cache-Control", "no-cache")
	wr.Header().Set("Connection", "keep-alive")
	wr.Header().Set("Access-Control-Allow-Origin", "*")

	fmt.Fprintf(wr, "event: connected\ndata: %s\n\n", topic)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-conn.events:
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(wr, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
