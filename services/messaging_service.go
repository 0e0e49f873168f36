package services

import (
	"time"

	"github.com/mbocsi/avi/server"
)

// Publisher publishes on behalf of the server. *server.Coordinator
// implements it.
type Publisher interface {
	PublishFromServer(topic string, data []byte) (int, error)
}

// MessagingServiceImpl implements MessagingService
type MessagingServiceImpl struct {
	publisher    Publisher
	broker       *server.Broker
	queryTracker *QueryTracker
}

// NewMessagingService creates a new messaging service
func NewMessagingService(publisher Publisher, broker *server.Broker) MessagingService {
	return &MessagingServiceImpl{
		publisher:    publisher,
		broker:       broker,
		queryTracker: NewQueryTracker(broker, 10*time.Second),
	}
}

// Publish validates and publishes a message
func (ms *MessagingServiceImpl) Publish(topic string, data []byte) (int, error) {
	if err := validateTopic(topic); err != nil {
		return 0, err
	}
	if err := validatePayload(data); err != nil {
		return 0, err
	}

	n, err := ms.publisher.PublishFromServer(topic, data)
	if err != nil {
		return 0, ServiceError{
			Code:    ErrCodeInternal,
			Message: "Failed to publish",
			Cause:   err,
		}
	}
	return n, nil
}

// Request publishes and waits for the first message on replyTopic
func (ms *MessagingServiceImpl) Request(topic, replyTopic string, data []byte, timeout ...time.Duration) (*Reply, error) {
	if err := validateTopic(replyTopic); err != nil {
		return nil, err
	}
	if err := validateTopic(topic); err != nil {
		return nil, err
	}
	if err := validatePayload(data); err != nil {
		return nil, err
	}

	return ms.queryTracker.SendQuery(replyTopic, func() error {
		_, err := ms.publisher.PublishFromServer(topic, data)
		return err
	}, timeout...)
}

// Subscribe subscribes an in-process client to a topic
func (ms *MessagingServiceImpl) Subscribe(topic string, client server.Client) error {
	if err := validateTopic(topic); err != nil {
		return err
	}

	ms.broker.Subscribe(topic, client)

	meta := client.Meta()
	meta.Mu.Lock()
	meta.Subs[topic] = struct{}{}
	meta.Mu.Unlock()

	return nil
}

// Unsubscribe unsubscribes an in-process client from a topic
func (ms *MessagingServiceImpl) Unsubscribe(topic string, client server.Client) error {
	if err := validateTopic(topic); err != nil {
		return err
	}

	ms.broker.Unsubscribe(topic, client)

	meta := client.Meta()
	meta.Mu.Lock()
	delete(meta.Subs, topic)
	meta.Mu.Unlock()

	return nil
}
