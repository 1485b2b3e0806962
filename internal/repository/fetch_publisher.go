package repository

import (
	"context"

	"FinGate/internal/domain/models"
	"FinGate/internal/domain/repository"
)

// Producer is the subset of pkg/kafka.Producer used for events.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPublisher implements EventPublisher for Kafka. Events are keyed by
// asset so one symbol's history lands on one partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer Producer, topic string) repository.EventPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishFetch(ctx context.Context, ev models.FetchEvent) error {
	key := string(ev.AssetKind) + ":" + ev.Symbol
	return p.producer.Publish(ctx, p.topic, []byte(key), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher drops events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishFetch(context.Context, models.FetchEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
