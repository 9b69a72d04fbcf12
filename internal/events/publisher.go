package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/platform/kafka"
)

const source = "service-booking"

// Publisher emits lifecycle events. Publishing is best-effort: a Kafka
// outage must never fail the request that produced the event, so callers
// use the Try* helpers which log and swallow errors.
type Publisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewPublisher creates an event publisher over the given producer.
func NewPublisher(producer *kafka.Producer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Publish emits an event to a topic, returning any error.
func (p *Publisher) Publish(ctx context.Context, topic, eventType string, data interface{}) error {
	ce, err := kafka.NewCloudEvent(source, eventType, data)
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(ctx, topic, ce)
}

// TryPublish emits an event and logs on failure instead of returning.
func (p *Publisher) TryPublish(ctx context.Context, topic, eventType string, data interface{}) {
	if err := p.Publish(ctx, topic, eventType, data); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
