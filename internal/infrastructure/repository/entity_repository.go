package repository

import (
	"context"
	"errors"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/repository/entity"
	"shopify-tenant-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tenantExternalKey = []clause.Column{{Name: "tenant_id"}, {Name: "external_id"}}

// EntityRepository implements ports.EntityRepository using GORM. Every write
// is a single INSERT ... ON CONFLICT on (tenant_id, external_id).
type EntityRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *gorm.DB, logger zerolog.Logger) *EntityRepository {
	return &EntityRepository{db: db, logger: logger}
}

var _ ports.EntityRepository = (*EntityRepository)(nil)

// UpsertProduct creates or updates a product
func (r *EntityRepository) UpsertProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	row := entity.ProductRow{
		TenantID:   in.TenantID,
		ExternalID: in.ExternalID,
		Title:      in.Title,
		Price:      in.Price,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   tenantExternalKey,
		DoUpdates: clause.AssignmentColumns([]string{"title", "price", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, domain.RepositoryError("upsert product", err)
	}

	var stored entity.ProductRow
	if err := r.findByKey(ctx, &stored, in.TenantID, in.ExternalID); err != nil {
		return nil, domain.RepositoryError("upsert product", err)
	}
	return stored.ToDomain(), nil
}

// UpsertCustomer creates or updates a customer, overwriting total spent with the given value
func (r *EntityRepository) UpsertCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	row := entity.CustomerRow{
		TenantID:   in.TenantID,
		ExternalID: in.ExternalID,
		Email:      in.Email,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		TotalSpent: in.TotalSpent,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   tenantExternalKey,
		DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "total_spent", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, domain.RepositoryError("upsert customer", err)
	}

	return r.customer(ctx, in.TenantID, in.ExternalID, "upsert customer")
}

// IncrementCustomerSpend adds amount to the customer's total, creating the
// customer with total = amount when absent. The read-modify-write happens
// inside the database in one statement.
func (r *EntityRepository) IncrementCustomerSpend(ctx context.Context, tenantID string, externalID string, amount decimal.Decimal) (*domain.Customer, error) {
	if err := domain.ValidateIncrement(tenantID, externalID, amount); err != nil {
		return nil, err
	}

	row := entity.CustomerRow{
		TenantID:   tenantID,
		ExternalID: externalID,
		TotalSpent: amount,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: tenantExternalKey,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_spent": gorm.Expr("customers.total_spent + excluded.total_spent"),
			"updated_at":  time.Now().UTC(),
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, domain.RepositoryError("increment customer spend", err)
	}

	return r.customer(ctx, tenantID, externalID, "increment customer spend")
}

// UpsertOrder creates or updates an order. Line items that fail to parse are
// stored as an empty list so the order total is still recorded.
func (r *EntityRepository) UpsertOrder(ctx context.Context, in domain.OrderInput) (*domain.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	items, ok := domain.ParseLineItems(in.LineItems)
	if !ok {
		r.logger.Warn().
			Str("tenantId", in.TenantID).
			Str("orderId", in.ExternalID).
			Msg("Discarding malformed line items")
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	row := entity.OrderRow{
		TenantID:           in.TenantID,
		ExternalID:         in.ExternalID,
		CreatedAt:          createdAt.UTC(),
		TotalPrice:         in.TotalPrice,
		CustomerExternalID: in.CustomerExternalID,
		LineItems:          datatypes.JSON(domain.EncodeLineItems(items)),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   tenantExternalKey,
		DoUpdates: clause.AssignmentColumns([]string{"created_at", "total_price", "customer_external_id", "line_items", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, domain.RepositoryError("upsert order", err)
	}

	var stored entity.OrderRow
	if err := r.findByKey(ctx, &stored, in.TenantID, in.ExternalID); err != nil {
		return nil, domain.RepositoryError("upsert order", err)
	}
	return stored.ToDomain(), nil
}

func (r *EntityRepository) customer(ctx context.Context, tenantID, externalID, op string) (*domain.Customer, error) {
	var stored entity.CustomerRow
	if err := r.findByKey(ctx, &stored, tenantID, externalID); err != nil {
		return nil, domain.RepositoryError(op, err)
	}
	return stored.ToDomain(), nil
}

func (r *EntityRepository) findByKey(ctx context.Context, dest interface{}, tenantID, externalID string) error {
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New("row missing after write")
	}
	return err
}
