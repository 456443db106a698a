package application

import (
	"context"
	"crypto/rand"
	"testing"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/repository/entity"
	"shopify-tenant-sync/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSealer(t *testing.T) *shopify.TokenManager {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	tm, err := shopify.NewTokenManager(key, zerolog.Nop())
	require.NoError(t, err)
	return tm
}

func TestSessionReconciler_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	r := NewSessionReconciler(s.tenants, newSealer(t), zerolog.Nop())

	tenant, err := r.StoreSession(ctx, domain.RawSession{
		"shop":        "Demo.myshopify.com",
		"accessToken": "shpat_123",
		"scope":       "read_products,read_orders",
	})
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", tenant.Domain)

	var row entity.TenantRow
	require.NoError(t, s.db.Where("domain = ?", "demo.myshopify.com").Take(&row).Error)
	require.NotNil(t, row.AccessToken)
	assert.NotEqual(t, "shpat_123", *row.AccessToken, "token must be sealed at rest")

	session, err := r.LoadSession(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "shpat_123", session.AccessToken)
	assert.Equal(t, "demo.myshopify.com", session.Shop)
}

func TestSessionReconciler_StoreReplacesToken(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	r := NewSessionReconciler(s.tenants, nil, zerolog.Nop())

	first, err := r.StoreSession(ctx, domain.RawSession{"shop": "demo.myshopify.com", "accessToken": "old"})
	require.NoError(t, err)
	second, err := r.StoreSession(ctx, domain.RawSession{"shopDomain": "demo.myshopify.com", "access_token": "new"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	session, err := r.LoadSession(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "new", session.AccessToken)
}

func TestSessionReconciler_MalformedSessionWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	r := NewSessionReconciler(s.tenants, nil, zerolog.Nop())

	for _, raw := range []domain.RawSession{
		{"accessToken": "x"},
		{"shop": "", "accessToken": "x"},
		{"shop": "not a domain", "accessToken": "x"},
	} {
		_, err := r.StoreSession(ctx, raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedSession)
	}

	var n int64
	require.NoError(t, s.db.Model(&entity.TenantRow{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSessionReconciler_SessionWithoutTokenKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	r := NewSessionReconciler(s.tenants, nil, zerolog.Nop())

	_, err := r.StoreSession(ctx, domain.RawSession{"shop": "demo.myshopify.com", "accessToken": "keep-me"})
	require.NoError(t, err)
	_, err = r.StoreSession(ctx, domain.RawSession{"shop": "demo.myshopify.com"})
	require.NoError(t, err)

	session, err := r.LoadSession(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "keep-me", session.AccessToken)
}

func TestSessionReconciler_DeleteSession(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	r := NewSessionReconciler(s.tenants, nil, zerolog.Nop())

	_, err := r.StoreSession(ctx, domain.RawSession{"shop": "demo.myshopify.com", "accessToken": "tok"})
	require.NoError(t, err)

	require.NoError(t, r.DeleteSession(ctx, "demo.myshopify.com"))
	session, err := r.LoadSession(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, session)

	installed, err := s.tenants.ListInstalled(ctx)
	require.NoError(t, err)
	assert.Empty(t, installed)

	// unknown shops and repeated deletes are harmless
	assert.NoError(t, r.DeleteSession(ctx, "ghost.myshopify.com"))
	assert.NoError(t, r.DeleteSession(ctx, "demo.myshopify.com"))
	assert.NoError(t, r.DeleteSession(ctx, ""))
}

func TestSessionReconciler_LoadUnknownShop(t *testing.T) {
	s := newStores(t)
	r := NewSessionReconciler(s.tenants, nil, zerolog.Nop())

	session, err := r.LoadSession(context.Background(), "ghost.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, session)
}
