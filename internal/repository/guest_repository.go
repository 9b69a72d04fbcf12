package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	guestDomain "github.com/armada-suites/service-booking/internal/domain/guest"
)

// GuestModel is the GORM persistence model for the guests table.
type GuestModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Phone     string    `gorm:"type:varchar(20)"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (GuestModel) TableName() string {
	return "guests"
}

// GuestRepositoryImpl is the GORM-based implementation of guest.Repository.
type GuestRepositoryImpl struct {
	db *gorm.DB
}

// NewGuestRepository creates a new GORM-based guest repository.
func NewGuestRepository(db *gorm.DB) *GuestRepositoryImpl {
	return &GuestRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *GuestRepositoryImpl) WithTx(tx *gorm.DB) *GuestRepositoryImpl {
	return &GuestRepositoryImpl{db: tx}
}

// FindByEmail retrieves a guest by email.
func (r *GuestRepositoryImpl) FindByEmail(ctx context.Context, email string) (*guestDomain.Guest, error) {
	var model GuestModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NewNotFoundError("guest", email)
		}
		return nil, err
	}
	return guestToDomain(&model), nil
}

// Save persists a new guest.
func (r *GuestRepositoryImpl) Save(ctx context.Context, g *guestDomain.Guest) error {
	if err := r.db.WithContext(ctx).Create(guestToModel(g)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerr.NewConflictError("guest email already exists")
		}
		return err
	}
	return nil
}

// Update persists contact-field changes to an existing guest.
func (r *GuestRepositoryImpl) Update(ctx context.Context, g *guestDomain.Guest) error {
	model := guestToModel(g)
	return r.db.WithContext(ctx).
		Model(&GuestModel{}).
		Where("id = ?", model.ID).
		Select("Name", "Phone", "UpdatedAt").
		Updates(model).Error
}

func guestToDomain(model *GuestModel) *guestDomain.Guest {
	return guestDomain.Reconstitute(
		model.ID,
		model.Email,
		model.Name,
		model.Phone,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func guestToModel(g *guestDomain.Guest) *GuestModel {
	return &GuestModel{
		ID:        g.ID(),
		Email:     g.Email(),
		Name:      g.Name(),
		Phone:     g.Phone(),
		CreatedAt: g.CreatedAt(),
		UpdatedAt: g.UpdatedAt(),
	}
}
