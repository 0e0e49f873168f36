package server

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/mbocsi/avi/proto"
)

type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[Client]struct{} // Map topic to hashset of Clients
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[Client]struct{}),
	}
}

func (b *Broker) Subscribe(topic string, client Client) {
	slog.Debug("Subscribing", "topic", topic, "clientId", client.Meta().Id)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[Client]struct{})
	}
	b.subs[topic][client] = struct{}{}
}

// Publish delivers data as a Message to every subscriber of topic and
// returns how many sends succeeded.
func (b *Broker) Publish(topic string, data []byte) int {
	b.mu.RLock()
	targets := make([]Client, 0, len(b.subs[topic]))
	for client := range b.subs[topic] {
		targets = append(targets, client)
	}
	b.mu.RUnlock()

	msg := proto.Message{Topic: topic, Data: data}
	sentCount := 0
	for _, client := range targets {
		if err := client.Send(msg); err != nil {
			slog.Warn("There was an error publishing a message to a subscriber", "topic", topic, "client", client.Meta().Id, "error", err.Error())
			continue
		}
		sentCount++
	}
	slog.Debug("Message published",
		"topic", topic,
		"subscribers", sentCount,
		"size", len(data),
	)
	return sentCount
}

func (b *Broker) Unsubscribe(topic string, client Client) {
	slog.Debug("Unsubscribing", "topic", topic, "clientId", client.Meta().Id)
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[topic]; ok {
		if _, exists := subs[client]; exists {
			delete(subs, client)
		} else {
			slog.Warn("Did not find client in topic to unsubscribe", "topic", topic, "client", client.Meta().Id)
		}
		if len(subs) == 0 {
			delete(b.subs, topic)
		}
	}
}

// UnsubscribeAll removes client from every topic.
func (b *Broker) UnsubscribeAll(client Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subs {
		delete(subs, client)
		if len(subs) == 0 {
			delete(b.subs, topic)
		}
	}
}

// Subs returns a copy of the subscriber set of topic.
func (b *Broker) Subs(topic string) map[Client]struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := make(map[Client]struct{}, len(b.subs[topic]))
	for client := range b.subs[topic] {
		subs[client] = struct{}{}
	}
	return subs
}

// Topics returns every topic with at least one subscriber, sorted.
func (b *Broker) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]string, 0, len(b.subs))
	for topic := range b.subs {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
