package guest

import (
	"strings"
	"time"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/google/uuid"
)

// Guest is keyed by unique email. Upserts overwrite contact fields; the
// booking service owns this aggregate and the payment service never
// mutates it.
type Guest struct {
	id        uuid.UUID
	email     string
	name      string
	phone     string
	createdAt time.Time
	updatedAt time.Time
}

// NewGuest creates a guest record.
func NewGuest(email, name, phone string) (*Guest, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domainerr.NewValidationError("guest email is required")
	}
	if name == "" {
		return nil, domainerr.NewValidationError("guest name is required")
	}
	now := time.Now().UTC()
	return &Guest{
		id:        uuid.New(),
		email:     email,
		name:      name,
		phone:     phone,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func (g *Guest) ID() uuid.UUID        { return g.id }
func (g *Guest) Email() string        { return g.email }
func (g *Guest) Name() string         { return g.name }
func (g *Guest) Phone() string        { return g.phone }
func (g *Guest) CreatedAt() time.Time { return g.createdAt }
func (g *Guest) UpdatedAt() time.Time { return g.updatedAt }

// UpdateContact overwrites the mutable contact fields.
func (g *Guest) UpdateContact(name, phone string) {
	if name != "" {
		g.name = name
	}
	if phone != "" {
		g.phone = phone
	}
	g.updatedAt = time.Now().UTC()
}

// Reconstitute rebuilds a Guest from persisted data.
func Reconstitute(id uuid.UUID, email, name, phone string, createdAt, updatedAt time.Time) *Guest {
	return &Guest{
		id:        id,
		email:     email,
		name:      name,
		phone:     phone,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}
