package entity

import (
	"time"

	"shopify-tenant-sync/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantRow is the tenants table
type TenantRow struct {
	ID          string  `gorm:"primaryKey;size:36"`
	Domain      string  `gorm:"size:255;not null;uniqueIndex"`
	Name        string  `gorm:"size:255"`
	AccessToken *string `gorm:"type:text"`
	Uninstalled bool    `gorm:"not null;default:false;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the default
func (TenantRow) TableName() string { return "tenants" }

// BeforeCreate assigns the opaque id on first insert
func (r *TenantRow) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ToDomain converts the row to a domain tenant
func (r *TenantRow) ToDomain() *domain.Tenant {
	return &domain.Tenant{
		ID:          r.ID,
		Domain:      r.Domain,
		Name:        r.Name,
		AccessToken: r.AccessToken,
		Uninstalled: r.Uninstalled,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// OwnerRow is the owners table
type OwnerRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"size:320;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	TenantID     string `gorm:"size:36;not null;index"`
	CreatedAt    time.Time
}

// TableName overrides the default
func (OwnerRow) TableName() string { return "owners" }

// BeforeCreate assigns the id on insert
func (r *OwnerRow) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ToDomain converts the row to a domain owner
func (r *OwnerRow) ToDomain() *domain.Owner {
	return &domain.Owner{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		TenantID:     r.TenantID,
		CreatedAt:    r.CreatedAt,
	}
}

// OwnerRowFromDomain converts a domain owner to a row
func OwnerRowFromDomain(o *domain.Owner) *OwnerRow {
	return &OwnerRow{
		ID:           o.ID,
		Email:        o.Email,
		PasswordHash: o.PasswordHash,
		TenantID:     o.TenantID,
		CreatedAt:    o.CreatedAt,
	}
}
