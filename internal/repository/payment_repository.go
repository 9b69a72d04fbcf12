package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	paymentDomain "github.com/armada-suites/service-booking/internal/domain/payment"
)

// PaymentModel is the GORM persistence model for the payments table.
type PaymentModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	BookingID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	Method        string     `gorm:"type:varchar(20);not null"`
	Provider      string     `gorm:"type:varchar(20);not null"`
	TransactionID string     `gorm:"type:varchar(255);index"`
	Reference     string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	AmountCents   int64      `gorm:"not null"`
	Currency      string     `gorm:"type:varchar(3);not null;default:'UGX'"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending'"`
	PhoneNumber   string     `gorm:"type:varchar(20)"`
	FailureReason string     `gorm:"type:text"`
	Metadata      []byte     `gorm:"type:jsonb"`
	ProcessedAt   *time.Time `gorm:"type:timestamptz"`
	Version       int64      `gorm:"not null;default:1"`
	CreatedAt     time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentRepositoryImpl is the GORM-based implementation of payment.Repository.
type PaymentRepositoryImpl struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new GORM-based payment repository.
func NewPaymentRepository(db *gorm.DB) *PaymentRepositoryImpl {
	return &PaymentRepositoryImpl{db: db}
}

// FindByID retrieves a payment by its unique ID.
func (r *PaymentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NewNotFoundError("payment", id.String())
		}
		return nil, err
	}
	return paymentToDomain(&model), nil
}

// FindByTransactionID retrieves a payment by provider transaction id.
func (r *PaymentRepositoryImpl) FindByTransactionID(ctx context.Context, transactionID string) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NewNotFoundError("payment", transactionID)
		}
		return nil, err
	}
	return paymentToDomain(&model), nil
}

// FindByBookingID retrieves all payment attempts for a booking, newest first.
func (r *PaymentRepositoryImpl) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*paymentDomain.Payment, error) {
	var models []PaymentModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	payments := make([]*paymentDomain.Payment, len(models))
	for i := range models {
		payments[i] = paymentToDomain(&models[i])
	}
	return payments, nil
}

// Save persists a new payment aggregate.
func (r *PaymentRepositoryImpl) Save(ctx context.Context, p *paymentDomain.Payment) error {
	model := paymentToModel(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerr.NewConflictError("payment reference already exists")
		}
		return err
	}
	return nil
}

// Update persists changes to an existing payment with optimistic locking.
func (r *PaymentRepositoryImpl) Update(ctx context.Context, p *paymentDomain.Payment) error {
	model := paymentToModel(p)
	previousVersion := p.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&PaymentModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("Status", "TransactionID", "FailureReason", "Metadata", "ProcessedAt", "PhoneNumber", "Version", "UpdatedAt").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerr.NewConflictError("payment was modified by another transaction")
	}
	return nil
}

// ListAll retrieves all payments with pagination (admin).
func (r *PaymentRepositoryImpl) ListAll(ctx context.Context, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	var total int64
	r.db.WithContext(ctx).Model(&PaymentModel{}).Count(&total)

	var models []PaymentModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]*paymentDomain.Payment, len(models))
	for i := range models {
		payments[i] = paymentToDomain(&models[i])
	}
	return payments, total, nil
}

// GetRevenueStats returns completed revenue and counts by status (admin).
func (r *PaymentRepositoryImpl) GetRevenueStats(ctx context.Context) (int64, map[string]int64, error) {
	var totalRevenue int64
	r.db.WithContext(ctx).Model(&PaymentModel{}).
		Where("status = ?", string(paymentDomain.StatusCompleted)).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&totalRevenue)

	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return 0, nil, err
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return totalRevenue, counts, nil
}

// paymentToDomain maps a PaymentModel to the domain aggregate.
func paymentToDomain(model *PaymentModel) *paymentDomain.Payment {
	metadata := map[string]string{}
	if len(model.Metadata) > 0 {
		// Metadata is an opaque diagnostic blob; a decode failure leaves it empty.
		_ = json.Unmarshal(model.Metadata, &metadata)
	}

	return paymentDomain.Reconstitute(
		model.ID,
		model.BookingID,
		paymentDomain.Method(model.Method),
		paymentDomain.Provider(model.Provider),
		model.TransactionID,
		model.Reference,
		model.AmountCents,
		model.Currency,
		paymentDomain.Status(model.Status),
		model.PhoneNumber,
		model.FailureReason,
		metadata,
		model.ProcessedAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// paymentToModel maps a domain aggregate to a PaymentModel for persistence.
func paymentToModel(p *paymentDomain.Payment) *PaymentModel {
	metadata, _ := json.Marshal(p.Metadata())

	return &PaymentModel{
		ID:            p.ID(),
		BookingID:     p.BookingID(),
		Method:        string(p.Method()),
		Provider:      string(p.Provider()),
		TransactionID: p.TransactionID(),
		Reference:     p.Reference(),
		AmountCents:   p.AmountCents(),
		Currency:      p.Currency(),
		Status:        string(p.Status()),
		PhoneNumber:   p.PhoneNumber(),
		FailureReason: p.FailureReason(),
		Metadata:      metadata,
		ProcessedAt:   p.ProcessedAt(),
		Version:       p.Version(),
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     p.UpdatedAt(),
	}
}
