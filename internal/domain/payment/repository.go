package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for Payment aggregates.
type Repository interface {
	// FindByID retrieves a payment by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByTransactionID retrieves a payment by the provider transaction
	// or intent id (used by webhook reconciliation).
	FindByTransactionID(ctx context.Context, transactionID string) (*Payment, error)

	// FindByBookingID retrieves all payment attempts for a booking, newest first.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*Payment, error)

	// ListAll retrieves all payments with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Payment, int64, error)

	// GetRevenueStats returns completed revenue and counts by status (admin).
	GetRevenueStats(ctx context.Context) (totalRevenueCents int64, countByStatus map[string]int64, err error)

	// Save persists a new payment aggregate.
	Save(ctx context.Context, payment *Payment) error

	// Update persists changes to an existing payment with optimistic locking.
	Update(ctx context.Context, payment *Payment) error
}
