package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/domain/booking"
	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/armada-suites/service-booking/internal/domain/guest"
	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/events"
	"github.com/armada-suites/service-booking/internal/fx"
)

// referenceAttempts bounds retries when a generated booking reference
// collides with an existing row.
const referenceAttempts = 3

// TransactionManager runs guest and booking writes atomically.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(guests guest.Repository, bookings booking.Repository) error) error
}

// GuestInput carries guest contact details on a booking request.
type GuestInput struct {
	Email string
	Name  string
	Phone string
}

// CreateBookingRequest is the normalized input for booking creation. The
// handler decodes the service-specific details and payment method before
// the service sees them.
type CreateBookingRequest struct {
	Guest    GuestInput
	Details  booking.ServiceDetails
	Total    decimal.Decimal
	Currency string
	Notes    string
	Payment  MethodDetails
}

// BookingResponse is returned from booking creation. The booking row
// outlives a failed payment attempt, so Payment carries its own success
// flag independent of the booking's.
type BookingResponse struct {
	BookingID     uuid.UUID        `json:"booking_id"`
	Reference     string           `json:"reference"`
	Status        string           `json:"status"`
	PaymentStatus string           `json:"payment_status"`
	Payment       *PaymentResponse `json:"payment,omitempty"`
	Message       string           `json:"message,omitempty"`
}

// BookingService orchestrates the booking lifecycle and its payment
// cascade.
type BookingService struct {
	tx        TransactionManager
	bookings  booking.Repository
	payments  payment.Repository
	dispatch  *PaymentService
	publisher EventPublisher
	logger    *zap.Logger
}

// NewBookingService creates a BookingService.
func NewBookingService(
	tx TransactionManager,
	bookings booking.Repository,
	payments payment.Repository,
	dispatch *PaymentService,
	publisher EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:        tx,
		bookings:  bookings,
		payments:  payments,
		dispatch:  dispatch,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateBooking upserts the guest and inserts the booking in one
// transaction, then dispatches payment after commit. A failed payment
// leaves the booking pending; the guest can retry with another method.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResponse, error) {
	if !req.Total.IsPositive() {
		return nil, domainerr.NewValidationError("booking total must be positive")
	}
	totalCents := fx.MinorUnits(req.Total, req.Currency)

	var b *booking.Booking
	var g *guest.Guest
	err := s.tx.WithinTransaction(ctx, func(guests guest.Repository, bookings booking.Repository) error {
		var err error
		g, err = s.upsertGuest(ctx, guests, req.Guest)
		if err != nil {
			return err
		}

		b, err = booking.NewBooking(g.ID(), req.Details, totalCents, req.Currency, req.Notes)
		if err != nil {
			return err
		}

		// References embed a millisecond timestamp fragment; collisions
		// are possible under bursts, so regenerate a bounded number of
		// times before giving up.
		for attempt := 0; ; attempt++ {
			err = bookings.Save(ctx, b)
			if err == nil {
				return nil
			}
			if !domainerr.IsKind(err, domainerr.ErrConflict) || attempt+1 >= referenceAttempts {
				return err
			}
			b.RegenerateReference()
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID().String()),
		zap.String("reference", b.Reference()),
		zap.String("service_type", string(b.ServiceType())),
	)

	s.publisher.TryPublish(ctx, events.TopicBookingEvents, events.BookingCreated, events.BookingCreatedEvent{
		BookingID:   b.ID(),
		Reference:   b.Reference(),
		GuestID:     g.ID(),
		ServiceType: string(b.ServiceType()),
		TotalCents:  b.TotalCents(),
		Currency:    b.Currency(),
		OccurredAt:  time.Now().UTC(),
	})

	payResp := s.dispatch.ProcessPayment(ctx, ProcessPaymentRequest{
		BookingID:     b.ID(),
		Amount:        req.Total,
		Currency:      req.Currency,
		CustomerEmail: g.Email(),
		CustomerName:  g.Name(),
		Description:   "Booking " + b.Reference(),
		Details:       req.Payment,
	})

	// Synchronous confirmation only happens when a provider reports
	// completion inline. Card and mobile-money rails confirm later via
	// webhook or polling.
	if payResp.Success && payResp.Status == string(payment.StatusCompleted) {
		if err := s.confirmBooking(ctx, b, derefUUID(payResp.PaymentID)); err != nil {
			s.logger.Error("failed to confirm booking after inline completion",
				zap.String("booking_id", b.ID().String()),
				zap.Error(err),
			)
		}
	}

	resp := &BookingResponse{
		BookingID:     b.ID(),
		Reference:     b.Reference(),
		Status:        string(b.Status()),
		PaymentStatus: string(b.PaymentStatus()),
		Payment:       payResp,
	}
	if !payResp.Success {
		resp.Message = "Booking created but payment was not completed"
	}
	return resp, nil
}

// upsertGuest finds the guest by email and refreshes contact details, or
// creates a new guest record.
func (s *BookingService) upsertGuest(ctx context.Context, guests guest.Repository, in GuestInput) (*guest.Guest, error) {
	g, err := guests.FindByEmail(ctx, in.Email)
	if err == nil {
		g.UpdateContact(in.Name, in.Phone)
		if err := guests.Update(ctx, g); err != nil {
			return nil, err
		}
		return g, nil
	}
	if !domainerr.IsKind(err, domainerr.ErrNotFound) {
		return nil, err
	}

	g, err = guest.NewGuest(in.Email, in.Name, in.Phone)
	if err != nil {
		return nil, err
	}
	if err := guests.Save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdatePaymentStatus applies a provider-reported status to a payment and
// cascades booking confirmation when the payment completed. It is the
// single reconciliation path shared by webhooks and status polling, and is
// safe to replay.
func (s *BookingService) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, status payment.Status, transactionID, failureReason string) error {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return err
	}

	if err := p.ApplyStatus(status, transactionID, failureReason); err != nil {
		return err
	}
	p.IncrementVersion()
	if err := s.payments.Update(ctx, p); err != nil {
		return err
	}

	s.logger.Info("payment status updated",
		zap.String("payment_id", paymentID.String()),
		zap.String("status", string(status)),
	)

	switch status {
	case payment.StatusCompleted:
		s.publisher.TryPublish(ctx, events.TopicPaymentEvents, events.PaymentCompleted, events.PaymentCompletedEvent{
			PaymentID:     p.ID(),
			BookingID:     p.BookingID(),
			Provider:      string(p.Provider()),
			TransactionID: p.TransactionID(),
			AmountCents:   p.AmountCents(),
			Currency:      p.Currency(),
			OccurredAt:    time.Now().UTC(),
		})

		b, err := s.bookings.FindByID(ctx, p.BookingID())
		if err != nil {
			return err
		}
		return s.confirmBooking(ctx, b, p.ID())

	case payment.StatusFailed:
		// A failed payment never touches the booking; the guest retries.
		s.publisher.TryPublish(ctx, events.TopicPaymentEvents, events.PaymentFailed, events.PaymentFailedEvent{
			PaymentID:  p.ID(),
			BookingID:  p.BookingID(),
			Provider:   string(p.Provider()),
			Reason:     failureReason,
			OccurredAt: time.Now().UTC(),
		})
	}
	return nil
}

// confirmBooking transitions a booking to confirmed/paid. Replays are
// no-ops at the domain layer, so webhook retries stay idempotent.
func (s *BookingService) confirmBooking(ctx context.Context, b *booking.Booking, paymentID uuid.UUID) error {
	if err := b.ConfirmPayment(); err != nil {
		return err
	}
	b.IncrementVersion()
	if err := s.bookings.Update(ctx, b); err != nil {
		return err
	}

	s.publisher.TryPublish(ctx, events.TopicBookingEvents, events.BookingConfirmed, events.BookingConfirmedEvent{
		BookingID:  b.ID(),
		Reference:  b.Reference(),
		PaymentID:  paymentID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// GetBooking retrieves a booking by reference along with its payment
// attempts.
func (s *BookingService) GetBooking(ctx context.Context, reference string) (*BookingDTO, error) {
	b, err := s.bookings.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, b)
}

// CancelBooking cancels a booking by ID, refunding a completed card
// payment when one exists.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, b, reason)
}

// CancelBookingByReference cancels a booking by its public reference. It
// backs the channel-manager event consumer.
func (s *BookingService) CancelBookingByReference(ctx context.Context, reference, reason string) error {
	b, err := s.bookings.FindByReference(ctx, reference)
	if err != nil {
		return err
	}
	_, err = s.cancel(ctx, b, reason)
	return err
}

func (s *BookingService) cancel(ctx context.Context, b *booking.Booking, reason string) (*BookingDTO, error) {
	if err := b.Cancel(reason); err != nil {
		return nil, err
	}

	// Refund the settling payment first so a refund failure does not leave
	// a cancelled booking holding funds.
	refunded := false
	attempts, err := s.payments.FindByBookingID(ctx, b.ID())
	if err == nil {
		for _, p := range attempts {
			if p.Status() != payment.StatusCompleted {
				continue
			}
			resp := s.dispatch.ProcessRefund(ctx, p.ID(), decimal.Zero, reason)
			if resp.Success {
				refunded = true
			} else {
				s.logger.Warn("cancellation refund not processed",
					zap.String("payment_id", p.ID().String()),
					zap.String("error", resp.Error),
				)
			}
			break
		}
	}

	if refunded {
		if err := b.MarkRefunded(); err != nil {
			s.logger.Warn("could not mark booking refunded", zap.Error(err))
		}
	}

	b.IncrementVersion()
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", b.ID().String()),
		zap.String("reference", b.Reference()),
		zap.String("reason", reason),
	)
	s.publisher.TryPublish(ctx, events.TopicBookingEvents, events.BookingCancelled, events.BookingCancelledEvent{
		BookingID:  b.ID(),
		Reference:  b.Reference(),
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})

	return s.toDTO(ctx, b)
}

// CheckIn transitions a confirmed booking to checked_in (staff).
func (s *BookingService) CheckIn(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	return s.transition(ctx, bookingID, (*booking.Booking).CheckIn)
}

// Complete transitions a checked-in booking to completed (staff).
func (s *BookingService) Complete(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	return s.transition(ctx, bookingID, (*booking.Booking).Complete)
}

// MarkNoShow flags a confirmed booking whose guest never arrived (staff).
func (s *BookingService) MarkNoShow(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	return s.transition(ctx, bookingID, (*booking.Booking).MarkNoShow)
}

func (s *BookingService) transition(ctx context.Context, bookingID uuid.UUID, op func(*booking.Booking) error) (*BookingDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := op(b); err != nil {
		return nil, err
	}
	b.IncrementVersion()
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	return s.toDTO(ctx, b)
}

// ListBookings returns a paginated list of bookings (admin).
func (s *BookingService) ListBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	list, total, err := s.bookings.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]BookingDTO, len(list))
	for i, b := range list {
		dtos[i] = BookingDTO{
			ID:            b.ID(),
			Reference:     b.Reference(),
			GuestID:       b.GuestID(),
			ServiceType:   string(b.ServiceType()),
			Status:        string(b.Status()),
			PaymentStatus: string(b.PaymentStatus()),
			TotalCents:    b.TotalCents(),
			Currency:      b.Currency(),
			Notes:         b.Notes(),
			CancelReason:  b.CancelReason(),
			CreatedAt:     b.CreatedAt(),
		}
	}
	return dtos, total, nil
}

// BookingDTO is the API response shape for booking data.
type BookingDTO struct {
	ID            uuid.UUID              `json:"id"`
	Reference     string                 `json:"reference"`
	GuestID       uuid.UUID              `json:"guest_id"`
	ServiceType   string                 `json:"service_type"`
	Details       booking.ServiceDetails `json:"details,omitempty"`
	Status        string                 `json:"status"`
	PaymentStatus string                 `json:"payment_status"`
	TotalCents    int64                  `json:"total_cents"`
	Currency      string                 `json:"currency"`
	Notes         string                 `json:"notes,omitempty"`
	CancelReason  string                 `json:"cancel_reason,omitempty"`
	Payments      []PaymentDTO           `json:"payments,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

func (s *BookingService) toDTO(ctx context.Context, b *booking.Booking) (*BookingDTO, error) {
	attempts, err := s.payments.FindByBookingID(ctx, b.ID())
	if err != nil && !domainerr.IsKind(err, domainerr.ErrNotFound) {
		return nil, err
	}
	dtos := make([]PaymentDTO, len(attempts))
	for i, p := range attempts {
		dtos[i] = toPaymentDTO(p)
	}
	return &BookingDTO{
		ID:            b.ID(),
		Reference:     b.Reference(),
		GuestID:       b.GuestID(),
		ServiceType:   string(b.ServiceType()),
		Details:       b.Details(),
		Status:        string(b.Status()),
		PaymentStatus: string(b.PaymentStatus()),
		TotalCents:    b.TotalCents(),
		Currency:      b.Currency(),
		Notes:         b.Notes(),
		CancelReason:  b.CancelReason(),
		Payments:      dtos,
		CreatedAt:     b.CreatedAt(),
	}, nil
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
