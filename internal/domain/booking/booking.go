package booking

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/google/uuid"
)

// Status represents the guest-facing booking lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// PaymentStatus tracks how much of the booking total has been settled.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// ServiceType discriminates the bookable service variants.
type ServiceType string

const (
	ServiceRoom     ServiceType = "room"
	ServiceDining   ServiceType = "dining"
	ServiceEvent    ServiceType = "event"
	ServiceFacility ServiceType = "facility"
	ServicePackage  ServiceType = "package"
)

// Booking is the aggregate root for a guest reservation of any service type.
type Booking struct {
	id            uuid.UUID
	reference     string
	guestID       uuid.UUID
	serviceType   ServiceType
	details       ServiceDetails
	status        Status
	paymentStatus PaymentStatus
	totalCents    int64
	currency      string
	notes         string
	cancelReason  string
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

// NewBooking creates a booking in pending/pending state after validating
// the service-specific details.
func NewBooking(guestID uuid.UUID, details ServiceDetails, totalCents int64, currency, notes string) (*Booking, error) {
	if guestID == uuid.Nil {
		return nil, domainerr.NewValidationError("guest id is required")
	}
	if totalCents <= 0 {
		return nil, domainerr.NewValidationError("booking total must be positive")
	}
	if details == nil {
		return nil, domainerr.NewValidationError("service details are required")
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		id:            uuid.New(),
		reference:     NewReference(),
		guestID:       guestID,
		serviceType:   details.ServiceType(),
		details:       details,
		status:        StatusPending,
		paymentStatus: PaymentPending,
		totalCents:    totalCents,
		currency:      strings.ToUpper(currency),
		notes:         notes,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID                { return b.id }
func (b *Booking) Reference() string            { return b.reference }
func (b *Booking) GuestID() uuid.UUID           { return b.guestID }
func (b *Booking) ServiceType() ServiceType     { return b.serviceType }
func (b *Booking) Details() ServiceDetails      { return b.details }
func (b *Booking) Status() Status               { return b.status }
func (b *Booking) PaymentStatus() PaymentStatus { return b.paymentStatus }
func (b *Booking) TotalCents() int64            { return b.totalCents }
func (b *Booking) Currency() string             { return b.currency }
func (b *Booking) Notes() string                { return b.notes }
func (b *Booking) CancelReason() string         { return b.cancelReason }
func (b *Booking) Version() int64               { return b.version }
func (b *Booking) CreatedAt() time.Time         { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time         { return b.updatedAt }

// --- State transitions ---

// ConfirmPayment marks the booking paid and confirmed. It is only called
// when an associated payment has reached completed, and is idempotent so
// repeated webhook deliveries do not error.
func (b *Booking) ConfirmPayment() error {
	if b.status == StatusConfirmed && b.paymentStatus == PaymentPaid {
		return nil
	}
	if b.status != StatusPending && b.status != StatusConfirmed {
		return domainerr.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	b.status = StatusConfirmed
	b.paymentStatus = PaymentPaid
	b.updatedAt = time.Now().UTC()
	return nil
}

// Cancel cancels a pending or confirmed booking.
func (b *Booking) Cancel(reason string) error {
	if b.status == StatusCancelled {
		return nil
	}
	if b.status != StatusPending && b.status != StatusConfirmed {
		return domainerr.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	b.status = StatusCancelled
	b.cancelReason = reason
	b.updatedAt = time.Now().UTC()
	return nil
}

// MarkRefunded records that the settled amount was returned to the guest.
func (b *Booking) MarkRefunded() error {
	if b.paymentStatus != PaymentPaid {
		return domainerr.NewInvalidStateError(string(b.paymentStatus), string(PaymentRefunded))
	}
	b.paymentStatus = PaymentRefunded
	b.updatedAt = time.Now().UTC()
	return nil
}

// CheckIn transitions a confirmed booking to checked_in.
func (b *Booking) CheckIn() error {
	if b.status != StatusConfirmed {
		return domainerr.NewInvalidStateError(string(b.status), string(StatusCheckedIn))
	}
	b.status = StatusCheckedIn
	b.updatedAt = time.Now().UTC()
	return nil
}

// Complete closes out a checked-in booking.
func (b *Booking) Complete() error {
	if b.status != StatusCheckedIn {
		return domainerr.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	b.status = StatusCompleted
	b.updatedAt = time.Now().UTC()
	return nil
}

// MarkNoShow flags a confirmed booking the guest never arrived for.
func (b *Booking) MarkNoShow() error {
	if b.status != StatusConfirmed {
		return domainerr.NewInvalidStateError(string(b.status), string(StatusNoShow))
	}
	b.status = StatusNoShow
	b.updatedAt = time.Now().UTC()
	return nil
}

// RegenerateReference replaces the booking reference after a uniqueness
// conflict on insert.
func (b *Booking) RegenerateReference() {
	b.reference = NewReference()
	b.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReference generates a guest-facing booking reference of the form
// BKG-<last 6 digits of epoch ms>-<4 base36 chars>.
func NewReference() string {
	ms := time.Now().UnixMilli() % 1000000
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return fmt.Sprintf("BKG-%06d-%s", ms, b.String())
}

// Reconstitute rebuilds a Booking from persisted data.
func Reconstitute(
	id uuid.UUID,
	reference string,
	guestID uuid.UUID,
	serviceType ServiceType,
	details ServiceDetails,
	status Status,
	paymentStatus PaymentStatus,
	totalCents int64,
	currency, notes, cancelReason string,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		reference:     reference,
		guestID:       guestID,
		serviceType:   serviceType,
		details:       details,
		status:        status,
		paymentStatus: paymentStatus,
		totalCents:    totalCents,
		currency:      currency,
		notes:         notes,
		cancelReason:  cancelReason,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}
