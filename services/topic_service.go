package services

import (
	"sort"

	"github.com/mbocsi/avi/server"
)

// TopicServiceImpl implements TopicService
type TopicServiceImpl struct {
	broker *server.Broker
}

func NewTopicService(broker *server.Broker) TopicService {
	return &TopicServiceImpl{broker: broker}
}

// ListTopics returns every topic with at least one subscriber
func (ts *TopicServiceImpl) ListTopics() ([]TopicInfo, error) {
	topics := ts.broker.Topics()
	result := make([]TopicInfo, 0, len(topics))
	for _, topic := range topics {
		result = append(result, ts.topicInfo(topic))
	}
	return result, nil
}

func (ts *TopicServiceImpl) GetTopic(topic string) (*TopicInfo, error) {
	if err := validateTopic(topic); err != nil {
		return nil, err
	}
	info := ts.topicInfo(topic)
	if len(info.Subscribers) == 0 {
		return nil, ServiceError{
			Code:    ErrCodeNotFound,
			Message: "Topic has no subscribers: " + topic,
		}
	}
	return &info, nil
}

func (ts *TopicServiceImpl) topicInfo(topic string) TopicInfo {
	subs := ts.broker.Subs(topic)
	ids := make([]string, 0, len(subs))
	for client := range subs {
		ids = append(ids, client.Meta().Id)
	}
	sort.Strings(ids)
	return TopicInfo{Topic: topic, Subscribers: ids}
}
