package entity

import (
	"encoding/json"
	"time"

	"shopify-tenant-sync/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductRow is the products table
type ProductRow struct {
	ID         uint            `gorm:"primaryKey"`
	TenantID   string          `gorm:"size:36;not null;uniqueIndex:idx_products_tenant_external"`
	ExternalID string          `gorm:"size:64;not null;uniqueIndex:idx_products_tenant_external"`
	Title      string          `gorm:"size:512"`
	Price      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName overrides the default
func (ProductRow) TableName() string { return "products" }

// ToDomain converts the row to a domain product
func (r *ProductRow) ToDomain() *domain.Product {
	return &domain.Product{
		ID:         r.ID,
		TenantID:   r.TenantID,
		ExternalID: r.ExternalID,
		Title:      r.Title,
		Price:      r.Price,
		UpdatedAt:  r.UpdatedAt,
	}
}

// CustomerRow is the customers table
type CustomerRow struct {
	ID         uint            `gorm:"primaryKey"`
	TenantID   string          `gorm:"size:36;not null;uniqueIndex:idx_customers_tenant_external"`
	ExternalID string          `gorm:"size:64;not null;uniqueIndex:idx_customers_tenant_external"`
	Email      string          `gorm:"size:320"`
	FirstName  string          `gorm:"size:255"`
	LastName   string          `gorm:"size:255"`
	TotalSpent decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName overrides the default
func (CustomerRow) TableName() string { return "customers" }

// ToDomain converts the row to a domain customer
func (r *CustomerRow) ToDomain() *domain.Customer {
	return &domain.Customer{
		ID:         r.ID,
		TenantID:   r.TenantID,
		ExternalID: r.ExternalID,
		Email:      r.Email,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		TotalSpent: r.TotalSpent,
		UpdatedAt:  r.UpdatedAt,
	}
}

// OrderRow is the orders table. CreatedAt is the provider's order time, not the row insert time.
type OrderRow struct {
	ID                 uint            `gorm:"primaryKey"`
	TenantID           string          `gorm:"size:36;not null;uniqueIndex:idx_orders_tenant_external"`
	ExternalID         string          `gorm:"size:64;not null;uniqueIndex:idx_orders_tenant_external"`
	CreatedAt          time.Time       `gorm:"autoCreateTime:false;index"`
	TotalPrice         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	CustomerExternalID string          `gorm:"size:64;index"`
	LineItems          datatypes.JSON
	UpdatedAt          time.Time
}

// TableName overrides the default
func (OrderRow) TableName() string { return "orders" }

// ToDomain converts the row to a domain order
func (r *OrderRow) ToDomain() *domain.Order {
	items := []domain.LineItem{}
	if len(r.LineItems) > 0 {
		if err := json.Unmarshal(r.LineItems, &items); err != nil || items == nil {
			items = []domain.LineItem{}
		}
	}
	return &domain.Order{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		ExternalID:         r.ExternalID,
		CreatedAt:          r.CreatedAt,
		TotalPrice:         r.TotalPrice,
		CustomerExternalID: r.CustomerExternalID,
		LineItems:          items,
		UpdatedAt:          r.UpdatedAt,
	}
}

// Models lists every table managed by migrations
func Models() []any {
	return []any{&TenantRow{}, &OwnerRow{}, &ProductRow{}, &CustomerRow{}, &OrderRow{}}
}
