package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/repository/entity"
	"shopify-tenant-sync/internal/ports"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantRepository implements ports.TenantRepository using GORM
type TenantRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB, logger zerolog.Logger) *TenantRepository {
	return &TenantRepository{db: db, logger: logger}
}

var _ ports.TenantRepository = (*TenantRepository)(nil)

// FindByDomain retrieves a tenant by shop domain
func (r *TenantRepository) FindByDomain(ctx context.Context, shop string) (*domain.Tenant, error) {
	var row entity.TenantRow
	err := r.db.WithContext(ctx).Where("domain = ?", shop).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.RepositoryError("find tenant by domain", err)
	}
	return row.ToDomain(), nil
}

// FindByID retrieves a tenant by id
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var row entity.TenantRow
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.RepositoryError("find tenant by id", err)
	}
	return row.ToDomain(), nil
}

// UpsertTenant inserts the tenant or, on a domain conflict, replaces its
// token and clears the uninstalled flag in the same statement.
func (r *TenantRepository) UpsertTenant(ctx context.Context, shop string, accessToken string, displayName string) (*domain.Tenant, error) {
	if strings.TrimSpace(shop) == "" {
		return nil, domain.ValidationError("upsert tenant", "domain is required")
	}
	if accessToken == "" {
		return nil, domain.ValidationError("upsert tenant", "access token is required")
	}

	now := time.Now().UTC()
	token := accessToken
	row := entity.TenantRow{
		Domain:      shop,
		Name:        displayName,
		AccessToken: &token,
		Uninstalled: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	updates := map[string]interface{}{
		"access_token": token,
		"uninstalled":  false,
		"updated_at":   now,
	}
	if displayName != "" {
		updates["name"] = displayName
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&row).Error
	if err != nil {
		return nil, domain.RepositoryError("upsert tenant", err)
	}

	return r.findAfterWrite(ctx, shop, "upsert tenant")
}

// EnsureTenant inserts the tenant without a token unless the domain already exists
func (r *TenantRepository) EnsureTenant(ctx context.Context, shop string) (*domain.Tenant, error) {
	if strings.TrimSpace(shop) == "" {
		return nil, domain.ValidationError("ensure tenant", "domain is required")
	}

	now := time.Now().UTC()
	row := entity.TenantRow{Domain: shop, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, domain.RepositoryError("ensure tenant", err)
	}

	return r.findAfterWrite(ctx, shop, "ensure tenant")
}

// MarkUninstalled soft-deletes the tenant's credentials
func (r *TenantRepository) MarkUninstalled(ctx context.Context, shop string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.TenantRow{}).
		Where("domain = ?", shop).
		Updates(map[string]interface{}{
			"access_token": nil,
			"uninstalled":  true,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return domain.RepositoryError("mark tenant uninstalled", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warn().Str("shop", shop).Msg("Uninstall received for unknown shop")
	}
	return nil
}

// ListInstalled returns a snapshot of every tenant holding a usable token
func (r *TenantRepository) ListInstalled(ctx context.Context) ([]*domain.Tenant, error) {
	var rows []entity.TenantRow
	err := r.db.WithContext(ctx).
		Where("uninstalled = ? AND access_token IS NOT NULL AND access_token <> ?", false, "").
		Order("domain").
		Find(&rows).Error
	if err != nil {
		return nil, domain.RepositoryError("list installed tenants", err)
	}

	tenants := make([]*domain.Tenant, 0, len(rows))
	for i := range rows {
		tenants = append(tenants, rows[i].ToDomain())
	}
	return tenants, nil
}

func (r *TenantRepository) findAfterWrite(ctx context.Context, shop string, op string) (*domain.Tenant, error) {
	tenant, err := r.FindByDomain(ctx, shop)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.RepositoryError(op, errors.New("tenant missing after write"))
	}
	return tenant, nil
}
