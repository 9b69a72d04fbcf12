package payment

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/google/uuid"
)

// Status represents the lifecycle state of a payment attempt.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// IsTerminal reports whether the status permits no further transitions
// (refund of a completed payment being the one exception).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsValidStatus reports whether s is a recognized payment status.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Method is the payment rail selected by the guest.
type Method string

const (
	MethodCard         Method = "card"
	MethodMobileMoney  Method = "mobile_money"
	MethodBankTransfer Method = "bank_transfer"
	MethodPayPal       Method = "paypal"
)

// Provider is the external rail a payment record was dispatched to.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderMTN    Provider = "mtn"
	ProviderAirtel Provider = "airtel"
	ProviderBank   Provider = "bank"
	ProviderPayPal Provider = "paypal"
)

// Payment is the aggregate root capturing one attempt to move money for a
// booking. Records are append-only: a retry creates a new Payment, it never
// rewrites a failed one.
type Payment struct {
	id            uuid.UUID
	bookingID     uuid.UUID
	method        Method
	provider      Provider
	transactionID string
	reference     string
	amountCents   int64
	currency      string
	status        Status
	phoneNumber   string
	failureReason string
	metadata      map[string]string
	processedAt   *time.Time
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

// NewPayment creates a payment record at dispatch time in pending state.
func NewPayment(bookingID uuid.UUID, method Method, provider Provider, amountCents int64, currency, reference string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		id:          uuid.New(),
		bookingID:   bookingID,
		method:      method,
		provider:    provider,
		amountCents: amountCents,
		currency:    strings.ToUpper(currency),
		reference:   reference,
		status:      StatusPending,
		metadata:    map[string]string{},
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}
}

// --- Getters ---

func (p *Payment) ID() uuid.UUID               { return p.id }
func (p *Payment) BookingID() uuid.UUID        { return p.bookingID }
func (p *Payment) Method() Method              { return p.method }
func (p *Payment) Provider() Provider          { return p.provider }
func (p *Payment) TransactionID() string       { return p.transactionID }
func (p *Payment) Reference() string           { return p.reference }
func (p *Payment) AmountCents() int64          { return p.amountCents }
func (p *Payment) Currency() string            { return p.currency }
func (p *Payment) Status() Status              { return p.status }
func (p *Payment) PhoneNumber() string         { return p.phoneNumber }
func (p *Payment) FailureReason() string       { return p.failureReason }
func (p *Payment) Metadata() map[string]string { return p.metadata }
func (p *Payment) ProcessedAt() *time.Time     { return p.processedAt }
func (p *Payment) Version() int64              { return p.version }
func (p *Payment) CreatedAt() time.Time        { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time        { return p.updatedAt }

// SetPhoneNumber records the payer MSISDN on mobile-money payments.
func (p *Payment) SetPhoneNumber(msisdn string) {
	p.phoneNumber = msisdn
	p.updatedAt = time.Now().UTC()
}

// SetTransactionID records the provider's transaction or intent id.
func (p *Payment) SetTransactionID(txID string) {
	p.transactionID = txID
	p.updatedAt = time.Now().UTC()
}

// AddMetadata attaches a provider diagnostic value to the record.
func (p *Payment) AddMetadata(key, value string) {
	if p.metadata == nil {
		p.metadata = map[string]string{}
	}
	p.metadata[key] = value
	p.updatedAt = time.Now().UTC()
}

// --- State transitions ---

// MarkProcessing moves a pending payment to processing.
func (p *Payment) MarkProcessing() error {
	if p.status == StatusProcessing {
		return nil
	}
	if p.status != StatusPending {
		return domainerr.NewInvalidStateError(string(p.status), string(StatusProcessing))
	}
	p.status = StatusProcessing
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted finalizes the payment. Calling it on an already completed
// payment is a no-op so webhook retries succeed.
func (p *Payment) MarkCompleted(transactionID string) error {
	if p.status == StatusCompleted {
		return nil
	}
	if p.status.IsTerminal() {
		return domainerr.NewInvalidStateError(string(p.status), string(StatusCompleted))
	}
	now := time.Now().UTC()
	p.status = StatusCompleted
	if transactionID != "" {
		p.transactionID = transactionID
	}
	p.processedAt = &now
	p.updatedAt = now
	return nil
}

// MarkFailed records a provider-reported failure.
func (p *Payment) MarkFailed(reason string) error {
	if p.status == StatusFailed {
		return nil
	}
	if p.status.IsTerminal() {
		return domainerr.NewInvalidStateError(string(p.status), string(StatusFailed))
	}
	p.status = StatusFailed
	p.failureReason = reason
	p.updatedAt = time.Now().UTC()
	return nil
}

// Cancel voids a payment that never reached a terminal state.
func (p *Payment) Cancel() error {
	if p.status == StatusCancelled {
		return nil
	}
	if p.status.IsTerminal() {
		return domainerr.NewInvalidStateError(string(p.status), string(StatusCancelled))
	}
	p.status = StatusCancelled
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkRefunded transitions a completed payment to refunded.
func (p *Payment) MarkRefunded() error {
	if p.status == StatusRefunded {
		return nil
	}
	if p.status != StatusCompleted {
		return domainerr.NewInvalidStateError(string(p.status), string(StatusRefunded))
	}
	p.status = StatusRefunded
	p.updatedAt = time.Now().UTC()
	return nil
}

// ApplyStatus routes a reconciliation update to the matching transition.
func (p *Payment) ApplyStatus(status Status, transactionID, failureReason string) error {
	switch status {
	case StatusProcessing:
		if transactionID != "" {
			p.transactionID = transactionID
		}
		return p.MarkProcessing()
	case StatusCompleted:
		return p.MarkCompleted(transactionID)
	case StatusFailed:
		return p.MarkFailed(failureReason)
	case StatusCancelled:
		return p.Cancel()
	case StatusRefunded:
		return p.MarkRefunded()
	default:
		return domainerr.NewValidationError(fmt.Sprintf("unknown payment status %q", status))
	}
}

// IncrementVersion bumps the version for optimistic locking.
func (p *Payment) IncrementVersion() {
	p.version++
	p.updatedAt = time.Now().UTC()
}

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReference generates a payment reference of the form
// ARM-<epoch ms>-<6 base36 chars>. Uniqueness is enforced by the database
// index on the column.
func NewReference() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return fmt.Sprintf("ARM-%d-%s", time.Now().UnixMilli(), b.String())
}

// Reconstitute rebuilds a Payment from persisted data.
func Reconstitute(
	id, bookingID uuid.UUID,
	method Method, provider Provider,
	transactionID, reference string,
	amountCents int64, currency string,
	status Status,
	phoneNumber, failureReason string,
	metadata map[string]string,
	processedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:            id,
		bookingID:     bookingID,
		method:        method,
		provider:      provider,
		transactionID: transactionID,
		reference:     reference,
		amountCents:   amountCents,
		currency:      currency,
		status:        status,
		phoneNumber:   phoneNumber,
		failureReason: failureReason,
		metadata:      metadata,
		processedAt:   processedAt,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}
