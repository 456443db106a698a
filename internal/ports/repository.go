package ports

import (
	"context"
	"time"

	"shopify-tenant-sync/internal/domain"

	"github.com/shopspring/decimal"
)

// TenantRepository persists one record per shop domain
type TenantRepository interface {
	// FindByDomain returns nil, nil when the domain is unknown
	FindByDomain(ctx context.Context, domain string) (*domain.Tenant, error)
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
	// UpsertTenant creates the tenant or replaces its token and clears the uninstalled flag
	UpsertTenant(ctx context.Context, domain string, accessToken string, displayName string) (*domain.Tenant, error)
	// EnsureTenant creates the tenant if absent and leaves an existing row untouched
	EnsureTenant(ctx context.Context, domain string) (*domain.Tenant, error)
	// MarkUninstalled clears the token and sets the uninstalled flag. Unknown domains are ignored.
	MarkUninstalled(ctx context.Context, domain string) error
	ListInstalled(ctx context.Context) ([]*domain.Tenant, error)
}

// EntityRepository performs idempotent writes of tenant-scoped entities
type EntityRepository interface {
	UpsertProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	UpsertCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error)
	IncrementCustomerSpend(ctx context.Context, tenantID string, externalID string, amount decimal.Decimal) (*domain.Customer, error)
	UpsertOrder(ctx context.Context, in domain.OrderInput) (*domain.Order, error)
}

// OwnerRepository persists dashboard accounts
type OwnerRepository interface {
	Create(ctx context.Context, owner *domain.Owner) error
	FindByEmail(ctx context.Context, email string) (*domain.Owner, error)
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
}

// AnalyticsRepository answers read-only aggregate queries for one tenant
type AnalyticsRepository interface {
	Summary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error)
	OrdersByDate(ctx context.Context, tenantID string, since time.Time) ([]domain.DailyOrderCount, error)
	TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.Customer, error)
	Counts(ctx context.Context, tenantID string) (*domain.DashboardCounts, error)
}

// WebhookLogRepository keeps an audit trail of verified webhook deliveries
type WebhookLogRepository interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
	ListRecent(ctx context.Context, shop string, limit int64) ([]*domain.WebhookEvent, error)
}
