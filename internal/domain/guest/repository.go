package guest

import "context"

// Repository defines the persistence contract for Guest records.
type Repository interface {
	// FindByEmail retrieves a guest by email, or a not-found error.
	FindByEmail(ctx context.Context, email string) (*Guest, error)

	// Save persists a new guest.
	Save(ctx context.Context, g *Guest) error

	// Update persists contact-field changes to an existing guest.
	Update(ctx context.Context, g *Guest) error
}
