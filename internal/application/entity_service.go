package application

import (
	"context"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// EntityService applies entity writes addressed by shop domain, as webhooks deliver them
type EntityService struct {
	tenants  ports.TenantRepository
	entities ports.EntityRepository
	logger   zerolog.Logger
}

// NewEntityService creates a new entity service
func NewEntityService(tenants ports.TenantRepository, entities ports.EntityRepository, logger zerolog.Logger) *EntityService {
	return &EntityService{tenants: tenants, entities: entities, logger: logger}
}

// ResolveTenant returns the tenant for shop, or ErrNotFound
func (s *EntityService) ResolveTenant(ctx context.Context, shop string) (*domain.Tenant, error) {
	tenant, err := s.tenants.FindByDomain(ctx, domain.NormalizeShopDomain(shop))
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.NewError(domain.KindNotFound, "resolve tenant "+shop, nil)
	}
	return tenant, nil
}

// UpsertProduct writes a product for shop
func (s *EntityService) UpsertProduct(ctx context.Context, shop string, in domain.ProductInput) (*domain.Product, error) {
	tenant, err := s.ResolveTenant(ctx, shop)
	if err != nil {
		return nil, err
	}
	in.TenantID = tenant.ID
	return s.entities.UpsertProduct(ctx, in)
}

// UpsertCustomer writes a customer for shop
func (s *EntityService) UpsertCustomer(ctx context.Context, shop string, in domain.CustomerInput) (*domain.Customer, error) {
	tenant, err := s.ResolveTenant(ctx, shop)
	if err != nil {
		return nil, err
	}
	in.TenantID = tenant.ID
	return s.entities.UpsertCustomer(ctx, in)
}

// UpsertOrder writes an order for shop
func (s *EntityService) UpsertOrder(ctx context.Context, shop string, in domain.OrderInput) (*domain.Order, error) {
	tenant, err := s.ResolveTenant(ctx, shop)
	if err != nil {
		return nil, err
	}
	in.TenantID = tenant.ID
	return s.entities.UpsertOrder(ctx, in)
}

// RecordOrderSpend adds an order total to the customer's running spend
func (s *EntityService) RecordOrderSpend(ctx context.Context, shop string, customerExternalID string, amount decimal.Decimal) (*domain.Customer, error) {
	tenant, err := s.ResolveTenant(ctx, shop)
	if err != nil {
		return nil, err
	}
	return s.entities.IncrementCustomerSpend(ctx, tenant.ID, customerExternalID, amount)
}
