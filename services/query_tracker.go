package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/mbocsi/avi/proto"
	"github.com/mbocsi/avi/server"
)

// inbox is a server-side subscriber that captures the first message
// delivered to it.
type inbox struct {
	meta *server.DeviceMetadata
	ch   chan Reply
}

func (i *inbox) Send(msg proto.Downlink) error {
	m, ok := msg.(proto.Message)
	if !ok {
		return nil
	}
	reply := Reply{
		Topic:    m.Topic,
		Data:     append([]byte(nil), m.Data...),
		Received: time.Now(),
	}
	select {
	case i.ch <- reply:
	default:
	}
	return nil
}

func (i *inbox) Meta() *server.DeviceMetadata {
	return i.meta
}

// QueryTracker waits for replies to server-initiated requests. Devices
// have no correlation ids, so a reply is simply the next message on the
// reply topic.
type QueryTracker struct {
	broker  *server.Broker
	timeout time.Duration
	pending map[string]*inbox
	mu      sync.Mutex
}

// NewQueryTracker creates a new query tracker
func NewQueryTracker(broker *server.Broker, defaultTimeout time.Duration) *QueryTracker {
	return &QueryTracker{
		broker:  broker,
		timeout: defaultTimeout,
		pending: make(map[string]*inbox),
	}
}

// SendQuery subscribes to replyTopic, calls send and waits for the reply.
func (qt *QueryTracker) SendQuery(replyTopic string, send func() error, timeout ...time.Duration) (*Reply, error) {
	queryTimeout := qt.timeout
	if len(timeout) > 0 && timeout[0] > 0 {
		queryTimeout = timeout[0]
	}

	in := &inbox{
		meta: server.NewDeviceMetadata("query", "server"),
		ch:   make(chan Reply, 1),
	}

	qt.mu.Lock()
	qt.pending[in.meta.Id] = in
	qt.mu.Unlock()
	qt.broker.Subscribe(replyTopic, in)

	defer func() {
		qt.broker.Unsubscribe(replyTopic, in)
		qt.mu.Lock()
		delete(qt.pending, in.meta.Id)
		qt.mu.Unlock()
	}()

	if err := send(); err != nil {
		return nil, ServiceError{
			Code:    ErrCodeInternal,
			Message: "Failed to send query message",
			Cause:   err,
		}
	}

	select {
	case reply := <-in.ch:
		return &reply, nil
	case <-time.After(queryTimeout):
		return nil, ServiceError{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("Query timeout after %v", queryTimeout),
		}
	}
}

// Pending returns the number of queries waiting for a reply.
func (qt *QueryTracker) Pending() int {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	return len(qt.pending)
}
