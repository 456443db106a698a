package application

import (
	"context"
	"testing"
	"time"

	"shopify-tenant-sync/internal/auth"
	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/cache"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type ownerFixture struct {
	service *OwnerService
	claims  *cache.MemoryStateStore
}

func newOwnerService(t *testing.T, s *stores) (*ownerFixture, *auth.Authenticator) {
	t.Helper()
	issuer, err := auth.NewIssuer("secret", "", time.Hour)
	require.NoError(t, err)
	authenticator, err := auth.NewAuthenticator("secret", "")
	require.NoError(t, err)
	claims := cache.NewMemoryStateStore()
	svc := NewOwnerService(s.owners, s.tenants, claims, issuer, zerolog.Nop())
	svc.hashCost = bcrypt.MinCost
	return &ownerFixture{service: svc, claims: claims}, authenticator
}

// claim installs shop and hands out a signup claim for it
func (f *ownerFixture) claim(t *testing.T, s *stores, shop string) string {
	t.Helper()
	ctx := context.Background()
	_, err := s.tenants.UpsertTenant(ctx, shop, "shpat_"+shop, "")
	require.NoError(t, err)
	token := "claim-" + shop
	require.NoError(t, f.claims.Save(ctx, token, shop, time.Hour))
	return token
}

func TestOwnerService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	f, authenticator := newOwnerService(t, s)
	claim := f.claim(t, s, "demo.myshopify.com")

	reg, err := f.service.Register(ctx, RegisterRequest{Email: "Owner@Example.com", Password: "pw", ClaimToken: claim})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.OwnerID)

	tenant, err := s.tenants.FindByDomain(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	assert.Equal(t, reg.TenantID, tenant.ID)
	assert.True(t, tenant.Installed(), "existing token must survive registration")

	res, err := f.service.Login(ctx, "owner@example.com", "pw")
	require.NoError(t, err)

	principal, err := authenticator.Authenticate("Bearer " + res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.TenantID, principal.TenantID)
	assert.Equal(t, reg.OwnerID, principal.OwnerID)
}

func TestOwnerService_RegisterRequiresClaimForInstalledShop(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	f, _ := newOwnerService(t, s)
	_, err := s.tenants.UpsertTenant(ctx, "victim.myshopify.com", "tok", "Victim")
	require.NoError(t, err)

	_, err = f.service.Register(ctx, RegisterRequest{Email: "mallory@example.com", Password: "pw", StoreName: "victim.myshopify.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.service.Register(ctx, RegisterRequest{Email: "mallory@example.com", Password: "pw", StoreName: "victim.myshopify.com", ClaimToken: "guessed"})
	assert.ErrorIs(t, err, domain.ErrAuth)

	owner, err := s.owners.FindByEmail(ctx, "mallory@example.com")
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestOwnerService_ClaimIsBoundToOneShopAndUsedOnce(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	f, _ := newOwnerService(t, s)
	_, err := s.tenants.UpsertTenant(ctx, "victim.myshopify.com", "tok", "")
	require.NoError(t, err)
	claim := f.claim(t, s, "mine.myshopify.com")

	_, err = f.service.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "pw", StoreName: "victim.myshopify.com", ClaimToken: claim})
	assert.ErrorIs(t, err, domain.ErrAuth, "claim for another shop")

	claim = f.claim(t, s, "mine.myshopify.com")
	reg, err := f.service.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "pw", StoreName: "Mine.myshopify.com", ClaimToken: claim})
	require.NoError(t, err)
	mine, err := s.tenants.FindByDomain(ctx, "mine.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, mine.ID, reg.TenantID)

	_, err = f.service.Register(ctx, RegisterRequest{Email: "b@example.com", Password: "pw", ClaimToken: claim})
	assert.ErrorIs(t, err, domain.ErrAuth, "claim already used")

	_, err = f.service.Register(ctx, RegisterRequest{Email: "b@example.com", Password: "pw", ClaimToken: f.claim(t, s, "mine.myshopify.com")})
	assert.ErrorIs(t, err, domain.ErrConflict, "shop already owned")
}

func TestOwnerService_RegisterRejections(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	f, _ := newOwnerService(t, s)

	_, err := f.service.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "pw", ClaimToken: f.claim(t, s, "demo.myshopify.com")})
	require.NoError(t, err)

	_, err = f.service.Register(ctx, RegisterRequest{Email: "A@example.com", Password: "other", ClaimToken: f.claim(t, s, "demo.myshopify.com")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	for _, req := range []RegisterRequest{
		{Password: "pw", ClaimToken: "c"},
		{Email: "b@example.com", ClaimToken: "c"},
		{Email: "b@example.com", Password: "pw"},
		{Email: "b@example.com", Password: "pw", ClaimToken: "c", StoreName: "no spaces allowed"},
	} {
		_, err := f.service.Register(ctx, req)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestOwnerService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	f, _ := newOwnerService(t, s)
	svc := f.service

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "pw", ClaimToken: f.claim(t, s, "demo.myshopify.com")})
	require.NoError(t, err)

	cases := map[string][2]string{
		"wrong password": {"a@example.com", "nope"},
		"unknown email":  {"ghost@example.com", "pw"},
		"empty":          {"", ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(ctx, c[0], c[1])
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrAuth)
		})
	}
}

func TestAnalyticsService_Defaults(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	tenant, err := s.tenants.UpsertTenant(ctx, "demo.myshopify.com", "tok", "")
	require.NoError(t, err)

	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	for i, day := range []int{10, 10, 9, 1} {
		_, err := s.entities.UpsertOrder(ctx, domain.OrderInput{
			TenantID:   tenant.ID,
			ExternalID: string(rune('a' + i)),
			CreatedAt:  time.Date(2024, 5, day, 9, 0, 0, 0, time.UTC),
			TotalPrice: decimal.NewFromInt(10),
		})
		require.NoError(t, err)
	}
	for i := 0; i < 7; i++ {
		_, err := s.entities.UpsertCustomer(ctx, domain.CustomerInput{
			TenantID:   tenant.ID,
			ExternalID: string(rune('a' + i)),
			TotalSpent: decimal.NewFromInt(int64(i)),
		})
		require.NoError(t, err)
	}

	svc := NewAnalyticsService(s.analytics)
	svc.now = func() time.Time { return now }

	days, err := svc.OrdersByDate(ctx, tenant.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, []domain.DailyOrderCount{{Date: "2024-05-09", Count: 1}, {Date: "2024-05-10", Count: 2}}, days)

	top, err := svc.TopCustomers(ctx, tenant.ID, 0)
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Equal(t, "g", top[0].ExternalID)

	summary, err := svc.Summary(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, summary.TotalOrders)
	assert.EqualValues(t, 7, summary.TotalCustomers)
	assert.True(t, summary.TotalRevenue.Equal(decimal.NewFromInt(40)))

	counts, err := svc.Dashboard(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, counts.Orders)
}
