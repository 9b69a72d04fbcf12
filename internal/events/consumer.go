package events

import (
	"context"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/platform/kafka"
)

// BookingCanceller is the slice of the booking service the consumer needs.
type BookingCanceller interface {
	CancelBookingByReference(ctx context.Context, reference, reason string) error
}

// ChannelEventConsumer listens to channel-manager events and applies OTA
// cancellations to local bookings.
type ChannelEventConsumer struct {
	consumer *kafka.Consumer
	bookings BookingCanceller
	logger   *zap.Logger
}

// NewChannelEventConsumer creates a consumer for channel events.
func NewChannelEventConsumer(brokers []string, groupID string, bookings BookingCanceller, logger *zap.Logger) *ChannelEventConsumer {
	return &ChannelEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicChannelEvents, logger),
		bookings: bookings,
		logger:   logger,
	}
}

// Start begins consuming. It blocks until the context is cancelled.
func (c *ChannelEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *ChannelEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from channel topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	c.logger.Info("received channel event",
		zap.String("type", ce.Type),
		zap.String("id", ce.ID),
	)

	switch {
	case strings.EqualFold(ce.Type, ChannelBookingCancelled):
		var event ChannelBookingCancelledEvent
		if err := ce.ParseData(&event); err != nil {
			c.logger.Error("failed to parse ChannelBookingCancelledEvent data", zap.Error(err))
			return err
		}
		return c.bookings.CancelBookingByReference(ctx, event.BookingReference, event.Reason)

	default:
		c.logger.Debug("ignoring unhandled channel event type",
			zap.String("type", ce.Type),
		)
		return nil
	}
}

// Close closes the underlying Kafka consumer.
func (c *ChannelEventConsumer) Close() error {
	return c.consumer.Close()
}
