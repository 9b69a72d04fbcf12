package booking

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for Booking aggregates.
type Repository interface {
	// FindByID retrieves a booking by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByReference retrieves a booking by its guest-facing reference.
	FindByReference(ctx context.Context, reference string) (*Booking, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// Save persists a new booking aggregate. Returns a conflict error on a
	// duplicate booking reference.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
