package repository

import (
	"context"
	"sync"
	"testing"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/database"
	"shopify-tenant-sync/internal/infrastructure/repository/entity"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func countTenants(t *testing.T, db *gorm.DB, shop string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&entity.TenantRow{}).Where("domain = ?", shop).Count(&n).Error)
	return n
}

func TestTenantRepository_UpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewTenantRepository(db, zerolog.Nop())
	ctx := context.Background()

	var firstID string
	for i := 0; i < 3; i++ {
		tenant, err := repo.UpsertTenant(ctx, "a.myshop.com", "tok1", "")
		require.NoError(t, err)
		if firstID == "" {
			firstID = tenant.ID
		}
		assert.Equal(t, firstID, tenant.ID)
		require.NotNil(t, tenant.AccessToken)
		assert.Equal(t, "tok1", *tenant.AccessToken)
	}
	assert.Equal(t, int64(1), countTenants(t, db, "a.myshop.com"))
}

func TestTenantRepository_InstallUninstallReinstall(t *testing.T) {
	repo := NewTenantRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	tenant, err := repo.UpsertTenant(ctx, "a.myshop.com", "tok1", "Shop A")
	require.NoError(t, err)
	assert.Equal(t, "a.myshop.com", tenant.Domain)
	assert.Equal(t, "tok1", *tenant.AccessToken)
	assert.False(t, tenant.Uninstalled)
	assert.True(t, tenant.Installed())

	require.NoError(t, repo.MarkUninstalled(ctx, "a.myshop.com"))
	tenant, err = repo.FindByDomain(ctx, "a.myshop.com")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	assert.Nil(t, tenant.AccessToken)
	assert.True(t, tenant.Uninstalled)
	assert.False(t, tenant.Installed())

	reinstalled, err := repo.UpsertTenant(ctx, "a.myshop.com", "tok2", "")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, reinstalled.ID)
	assert.Equal(t, "tok2", *reinstalled.AccessToken)
	assert.False(t, reinstalled.Uninstalled)
	assert.Equal(t, "Shop A", reinstalled.Name)
}

func TestTenantRepository_MarkUninstalledUnknownDomain(t *testing.T) {
	db := newTestDB(t)
	repo := NewTenantRepository(db, zerolog.Nop())

	require.NoError(t, repo.MarkUninstalled(context.Background(), "ghost.myshop.com"))
	assert.Equal(t, int64(0), countTenants(t, db, "ghost.myshop.com"))
}

func TestTenantRepository_FindByDomainMissing(t *testing.T) {
	repo := NewTenantRepository(newTestDB(t), zerolog.Nop())

	tenant, err := repo.FindByDomain(context.Background(), "nobody.myshop.com")
	require.NoError(t, err)
	assert.Nil(t, tenant)
}

func TestTenantRepository_ListInstalled(t *testing.T) {
	repo := NewTenantRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	_, err := repo.UpsertTenant(ctx, "b.myshop.com", "tok", "")
	require.NoError(t, err)
	_, err = repo.UpsertTenant(ctx, "a.myshop.com", "tok", "")
	require.NoError(t, err)
	_, err = repo.UpsertTenant(ctx, "gone.myshop.com", "tok", "")
	require.NoError(t, err)
	require.NoError(t, repo.MarkUninstalled(ctx, "gone.myshop.com"))
	_, err = repo.EnsureTenant(ctx, "pending.myshop.com")
	require.NoError(t, err)

	tenants, err := repo.ListInstalled(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "a.myshop.com", tenants[0].Domain)
	assert.Equal(t, "b.myshop.com", tenants[1].Domain)
}

func TestTenantRepository_EnsureTenantKeepsToken(t *testing.T) {
	repo := NewTenantRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	installed, err := repo.UpsertTenant(ctx, "a.myshop.com", "tok1", "")
	require.NoError(t, err)

	ensured, err := repo.EnsureTenant(ctx, "a.myshop.com")
	require.NoError(t, err)
	assert.Equal(t, installed.ID, ensured.ID)
	require.NotNil(t, ensured.AccessToken)
	assert.Equal(t, "tok1", *ensured.AccessToken)

	fresh, err := repo.EnsureTenant(ctx, "new.myshop.com")
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.ID)
	assert.Nil(t, fresh.AccessToken)
	assert.False(t, fresh.Uninstalled)
}

func TestTenantRepository_ConcurrentUpsertSameDomain(t *testing.T) {
	db := newTestDB(t)
	repo := NewTenantRepository(db, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpsertTenant(ctx, "race.myshop.com", "tok", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), countTenants(t, db, "race.myshop.com"))
}

func TestTenantRepository_Validation(t *testing.T) {
	repo := NewTenantRepository(newTestDB(t), zerolog.Nop())

	_, err := repo.UpsertTenant(context.Background(), "", "tok", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = repo.UpsertTenant(context.Background(), "a.myshop.com", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
