package repository

import (
	"context"

	"SpendLens/internal/domain/repository"
	pkgkafka "SpendLens/pkg/kafka"
)

// KafkaPublisher adapts pkg/kafka to the domain Publisher. Scan
// findings and aggregated logs both go through this surface.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
}

// NewKafkaPublisher creates a Kafka-backed publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer) repository.Publisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
