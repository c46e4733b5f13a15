package event

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Default Kafka topics.
const (
	TopicActivity    = "global-activity"
	TopicOddsUpdates = "odds-updates"
)

// KafkaPublisher broadcasts events to Kafka. Odds updates are keyed by
// match ID so per-match ordering is preserved within a partition.
type KafkaPublisher struct {
	activity *kafka.Writer
	odds     *kafka.Writer
}

// NewKafkaPublisher creates a Kafka publisher against the given brokers
// ("a:9092,b:9092").
func NewKafkaPublisher(brokers, activityTopic, oddsTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		activity: newWriter(brokers, activityTopic),
		odds:     newWriter(brokers, oddsTopic),
	}
}

func newWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func (p *KafkaPublisher) PublishActivity(ctx context.Context, a Activity) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return p.activity.WriteMessages(ctx, kafka.Message{
		Key:   []byte(a.ID),
		Value: payload,
	})
}

func (p *KafkaPublisher) PublishOddsUpdate(ctx context.Context, u OddsUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return p.odds.WriteMessages(ctx, kafka.Message{
		Key:   []byte(u.MatchID),
		Value: payload,
	})
}

// Close flushes and closes the underlying writers.
func (p *KafkaPublisher) Close() error {
	if err := p.activity.Close(); err != nil {
		return err
	}
	return p.odds.Close()
}
