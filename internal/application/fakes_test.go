package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/database"
	"shopify-tenant-sync/internal/infrastructure/repository"
	"shopify-tenant-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stores struct {
	db        *gorm.DB
	tenants   *repository.TenantRepository
	entities  *repository.EntityRepository
	owners    *repository.OwnerRepository
	analytics *repository.AnalyticsRepository
}

func newStores(t *testing.T) *stores {
	t.Helper()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &stores{
		db:        db,
		tenants:   repository.NewTenantRepository(db, zerolog.Nop()),
		entities:  repository.NewEntityRepository(db, zerolog.Nop()),
		owners:    repository.NewOwnerRepository(db),
		analytics: repository.NewAnalyticsRepository(db),
	}
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// shopData is what the fake provider serves for one shop
type shopData struct {
	products  []goshopify.Product
	customers []goshopify.Customer
	orders    []goshopify.Order
	failOn    string
	delay     time.Duration
}

type createdWebhook struct {
	shop, topic, address string
}

type fakeProvider struct {
	mu       sync.Mutex
	shops    map[string]*shopData
	tokens   map[string]string
	verifyOK bool
	webhooks []createdWebhook
	calls    map[string]int
	active   map[string]int
	peak     map[string]int
}

var _ ports.ShopifyClient = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		shops:    map[string]*shopData{},
		tokens:   map[string]string{},
		verifyOK: true,
		calls:    map[string]int{},
		active:   map[string]int{},
		peak:     map[string]int{},
	}
}

func (f *fakeProvider) data(shop, op string) (*shopData, error) {
	f.mu.Lock()
	f.calls[shop]++
	d, ok := f.shops[shop]
	if !ok {
		f.mu.Unlock()
		return &shopData{}, nil
	}
	f.active[shop]++
	if f.active[shop] > f.peak[shop] {
		f.peak[shop] = f.active[shop]
	}
	f.mu.Unlock()

	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[shop]--
	if d.failOn == op {
		return nil, fmt.Errorf("%s: 503 service unavailable", op)
	}
	return d, nil
}

func (f *fakeProvider) peakFor(shop string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak[shop]
}

func (f *fakeProvider) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	q := url.Values{}
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return "https://" + shop + "/admin/oauth/authorize?" + q.Encode(), nil
}

func (f *fakeProvider) VerifyAuthorizationURL(*url.URL) (bool, error) {
	return f.verifyOK, nil
}

func (f *fakeProvider) ExchangeToken(_ context.Context, shop string, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[code]
	if !ok {
		return "", errors.New("invalid code")
	}
	return token, nil
}

func (f *fakeProvider) GetShop(_ context.Context, shop string, _ string) (*goshopify.Shop, error) {
	return &goshopify.Shop{Name: "Shop " + shop, MyshopifyDomain: shop}, nil
}

func (f *fakeProvider) ListProducts(_ context.Context, shop string, _ string) ([]goshopify.Product, error) {
	d, err := f.data(shop, "products")
	if err != nil {
		return nil, err
	}
	return d.products, nil
}

func (f *fakeProvider) ListCustomers(_ context.Context, shop string, _ string) ([]goshopify.Customer, error) {
	d, err := f.data(shop, "customers")
	if err != nil {
		return nil, err
	}
	return d.customers, nil
}

func (f *fakeProvider) ListOrders(_ context.Context, shop string, _ string) ([]goshopify.Order, error) {
	d, err := f.data(shop, "orders")
	if err != nil {
		return nil, err
	}
	return d.orders, nil
}

func (f *fakeProvider) CreateWebhook(_ context.Context, shop string, _ string, topic string, address string) (*goshopify.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhooks = append(f.webhooks, createdWebhook{shop: shop, topic: topic, address: address})
	if topic == domain.TopicCustomersUpdate {
		return nil, errors.New("422 topic already registered")
	}
	return &goshopify.Webhook{Topic: topic, Address: address}, nil
}

type recordingHandler struct {
	topic  string
	err    error
	mu     sync.Mutex
	events []*domain.WebhookEvent
}

func (h *recordingHandler) CanHandle(topic string) bool { return h.topic == "" || h.topic == topic }

func (h *recordingHandler) Handle(_ context.Context, event *domain.WebhookEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
