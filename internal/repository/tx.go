package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/armada-suites/service-booking/internal/domain/booking"
	"github.com/armada-suites/service-booking/internal/domain/guest"
)

// TxManager runs guest and booking writes inside a single database
// transaction.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a TxManager.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTransaction executes fn with transaction-scoped repositories. The
// transaction commits when fn returns nil and rolls back otherwise.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(guests guest.Repository, bookings booking.Repository) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guests := NewGuestRepository(tx)
		bookings := NewBookingRepository(tx)
		return fn(guests, bookings)
	})
}
