package repository

import (
	"context"
	"errors"
	"strings"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/repository/entity"
	"shopify-tenant-sync/internal/ports"

	"gorm.io/gorm"
)

// OwnerRepository implements ports.OwnerRepository using GORM
type OwnerRepository struct {
	db *gorm.DB
}

// NewOwnerRepository creates a new owner repository
func NewOwnerRepository(db *gorm.DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

var _ ports.OwnerRepository = (*OwnerRepository)(nil)

// Create inserts a new owner. A duplicate email reports ErrConflict.
func (r *OwnerRepository) Create(ctx context.Context, owner *domain.Owner) error {
	row := entity.OwnerRowFromDomain(owner)
	row.Email = strings.ToLower(strings.TrimSpace(row.Email))

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, "create owner", errors.New("email already registered"))
		}
		return domain.RepositoryError("create owner", err)
	}

	owner.ID = row.ID
	owner.Email = row.Email
	owner.CreatedAt = row.CreatedAt
	return nil
}

// FindByEmail returns nil, nil when no owner uses the email
func (r *OwnerRepository) FindByEmail(ctx context.Context, email string) (*domain.Owner, error) {
	var row entity.OwnerRow
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.RepositoryError("find owner", err)
	}
	return row.ToDomain(), nil
}

// CountByTenant reports how many owners the tenant has
func (r *OwnerRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.OwnerRow{}).Where("tenant_id = ?", tenantID).Count(&n).Error
	if err != nil {
		return 0, domain.RepositoryError("count owners", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
