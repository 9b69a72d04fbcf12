// Package events defines the service's Kafka topics and event payloads and
// the plumbing to publish and consume them.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicPaymentEvents = "payment.events"
	TopicBookingEvents = "booking.events"
	TopicChannelEvents = "channel.events"
)

// Event types.
const (
	PaymentCompleted = "payment.completed"
	PaymentFailed    = "payment.failed"
	PaymentRefunded  = "payment.refunded"
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"

	// Emitted by the channel-manager integration when an OTA cancels a
	// reservation on our behalf.
	ChannelBookingCancelled = "channel.booking.cancelled"
)

// PaymentCompletedEvent is published when a payment reaches completed.
type PaymentCompletedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	BookingID     uuid.UUID `json:"booking_id"`
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transaction_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentFailedEvent is published when a payment attempt fails.
type PaymentFailedEvent struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	Provider   string    `json:"provider"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PaymentRefundedEvent is published when a completed payment is refunded.
type PaymentRefundedEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	BookingID   uuid.UUID `json:"booking_id"`
	RefundID    string    `json:"refund_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingCreatedEvent is published after a booking row is committed.
type BookingCreatedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	Reference   string    `json:"reference"`
	GuestID     uuid.UUID `json:"guest_id"`
	ServiceType string    `json:"service_type"`
	TotalCents  int64     `json:"total_cents"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingConfirmedEvent is published when payment completion confirms a
// booking.
type BookingConfirmedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	Reference  string    `json:"reference"`
	PaymentID  uuid.UUID `json:"payment_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingCancelledEvent is published when a booking is cancelled.
type BookingCancelledEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	Reference  string    `json:"reference"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ChannelBookingCancelledEvent arrives on channel.events from the OTA
// channel manager.
type ChannelBookingCancelledEvent struct {
	BookingReference string    `json:"booking_reference"`
	Reason           string    `json:"reason"`
	OccurredAt       time.Time `json:"occurred_at"`
}
