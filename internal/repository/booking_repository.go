package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/armada-suites/service-booking/internal/domain/booking"
	"github.com/armada-suites/service-booking/internal/domain/domainerr"
)

// BookingModel is the GORM persistence model for the bookings table. The
// service-specific fields live in the Details JSON column, discriminated by
// ServiceType.
type BookingModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Reference     string    `gorm:"type:varchar(32);uniqueIndex;not null"`
	GuestID       uuid.UUID `gorm:"type:uuid;index;not null"`
	ServiceType   string    `gorm:"type:varchar(20);not null"`
	Details       []byte    `gorm:"type:jsonb;not null"`
	Status        string    `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentStatus string    `gorm:"type:varchar(20);not null;default:'pending'"`
	TotalCents    int64     `gorm:"not null"`
	Currency      string    `gorm:"type:varchar(3);not null;default:'UGX'"`
	Notes         string    `gorm:"type:text"`
	CancelReason  string    `gorm:"type:text"`
	Version       int64     `gorm:"not null;default:1"`
	CreatedAt     time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (BookingModel) TableName() string {
	return "bookings"
}

// BookingRepositoryImpl is the GORM-based implementation of booking.Repository.
type BookingRepositoryImpl struct {
	db *gorm.DB
}

// NewBookingRepository creates a new GORM-based booking repository.
func NewBookingRepository(db *gorm.DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *BookingRepositoryImpl) WithTx(tx *gorm.DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: tx}
}

// FindByID retrieves a booking by its unique ID.
func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NewNotFoundError("booking", id.String())
		}
		return nil, err
	}
	return bookingToDomain(&model)
}

// FindByReference retrieves a booking by its guest-facing reference.
func (r *BookingRepositoryImpl) FindByReference(ctx context.Context, reference string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NewNotFoundError("booking", reference)
		}
		return nil, err
	}
	return bookingToDomain(&model)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *BookingRepositoryImpl) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total)

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	bookings := make([]*bookingDomain.Booking, 0, len(models))
	for i := range models {
		b, err := bookingToDomain(&models[i])
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, nil
}

// Save persists a new booking aggregate, reporting reference collisions as
// conflicts so the service can regenerate and retry.
func (r *BookingRepositoryImpl) Save(ctx context.Context, b *bookingDomain.Booking) error {
	model, err := bookingToModel(b)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerr.NewConflictError("booking reference already exists")
		}
		return err
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *BookingRepositoryImpl) Update(ctx context.Context, b *bookingDomain.Booking) error {
	model, err := bookingToModel(b)
	if err != nil {
		return err
	}
	previousVersion := b.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("Status", "PaymentStatus", "CancelReason", "Version", "UpdatedAt").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerr.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// bookingToDomain maps a BookingModel to the domain aggregate.
func bookingToDomain(model *BookingModel) (*bookingDomain.Booking, error) {
	details, err := bookingDomain.DecodeDetails(bookingDomain.ServiceType(model.ServiceType), model.Details)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", model.ID, err)
	}

	return bookingDomain.Reconstitute(
		model.ID,
		model.Reference,
		model.GuestID,
		bookingDomain.ServiceType(model.ServiceType),
		details,
		bookingDomain.Status(model.Status),
		bookingDomain.PaymentStatus(model.PaymentStatus),
		model.TotalCents,
		model.Currency,
		model.Notes,
		model.CancelReason,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	), nil
}

// bookingToModel maps a domain aggregate to a BookingModel for persistence.
func bookingToModel(b *bookingDomain.Booking) (*BookingModel, error) {
	details, err := json.Marshal(b.Details())
	if err != nil {
		return nil, fmt.Errorf("encode booking details: %w", err)
	}

	return &BookingModel{
		ID:            b.ID(),
		Reference:     b.Reference(),
		GuestID:       b.GuestID(),
		ServiceType:   string(b.ServiceType()),
		Details:       details,
		Status:        string(b.Status()),
		PaymentStatus: string(b.PaymentStatus()),
		TotalCents:    b.TotalCents(),
		Currency:      b.Currency(),
		Notes:         b.Notes(),
		CancelReason:  b.CancelReason(),
		Version:       b.Version(),
		CreatedAt:     b.CreatedAt(),
		UpdatedAt:     b.UpdatedAt(),
	}, nil
}
