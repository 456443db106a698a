package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/cache"
	"shopify-tenant-sync/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "hush"

type memoryWebhookLog struct {
	mu     sync.Mutex
	events []*domain.WebhookEvent
}

func (l *memoryWebhookLog) LogWebhook(_ context.Context, event *domain.WebhookEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *memoryWebhookLog) ListRecent(_ context.Context, shop string, limit int64) ([]*domain.WebhookEvent, error) {
	return l.events, nil
}

type capturePublisher struct{ events []*domain.WebhookEvent }

func (p *capturePublisher) Publish(event *domain.WebhookEvent) { p.events = append(p.events, event) }

type outcomeRecorder struct {
	results    []string
	duplicates int
}

func (o *outcomeRecorder) ObserveWebhook(_ string, result string) { o.results = append(o.results, result) }
func (o *outcomeRecorder) ObserveDuplicate()                      { o.duplicates++ }

type webhookFixture struct {
	handler   *recordingHandler
	log       *memoryWebhookLog
	publisher *capturePublisher
	observer  *outcomeRecorder
	service   *WebhookService
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		handler:   &recordingHandler{},
		log:       &memoryWebhookLog{},
		publisher: &capturePublisher{},
		observer:  &outcomeRecorder{},
	}
	dispatcher := NewWebhookDispatcher(zerolog.Nop())
	dispatcher.RegisterHandler(f.handler)
	f.service = NewWebhookService(shopify.NewWebhookVerifier(webhookSecret), dispatcher, WebhookServiceOptions{
		Dedupe:    cache.NewMemoryDeduplicator(),
		Log:       f.log,
		Publisher: f.publisher,
		Observer:  f.observer,
	}, zerolog.Nop())
	return f
}

func delivery(id string, payload string) WebhookDelivery {
	return WebhookDelivery{
		Topic:     domain.TopicOrdersCreate,
		Shop:      "Demo.myshopify.com",
		WebhookID: id,
		Signature: shopify.SignBase64(webhookSecret, []byte(payload)),
		Payload:   []byte(payload),
	}
}

func TestIngest_InvalidSignatureTouchesNothing(t *testing.T) {
	f := newWebhookFixture()
	d := delivery("w-1", `{"id":1}`)
	d.Signature = shopify.SignBase64("wrong", d.Payload)

	_, err := f.service.Ingest(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSignature)

	assert.Zero(t, f.handler.count())
	assert.Empty(t, f.log.events)
	assert.Empty(t, f.publisher.events)
	assert.Equal(t, []string{WebhookRejected}, f.observer.results)

	// the rejected id was not remembered, so a valid redelivery goes through
	_, err = f.service.Ingest(context.Background(), delivery("w-1", `{"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, 1, f.handler.count())
}

func TestIngest_MissingSignature(t *testing.T) {
	f := newWebhookFixture()
	d := delivery("w-1", `{}`)
	d.Signature = ""

	_, err := f.service.Ingest(context.Background(), d)
	assert.ErrorIs(t, err, domain.ErrSignature)
	assert.Zero(t, f.handler.count())
}

func TestIngest_AcceptedDelivery(t *testing.T) {
	f := newWebhookFixture()

	event, err := f.service.Ingest(context.Background(), delivery("w-1", `{"id":1}`))
	require.NoError(t, err)
	assert.True(t, event.Verified)
	assert.Equal(t, "demo.myshopify.com", event.Shop)
	assert.NotEmpty(t, event.ID)

	assert.Equal(t, 1, f.handler.count())
	assert.Len(t, f.log.events, 1)
	assert.Len(t, f.publisher.events, 1)
	assert.Equal(t, []string{WebhookAccepted}, f.observer.results)
}

func TestIngest_DuplicateDeliveryAppliedOnce(t *testing.T) {
	f := newWebhookFixture()

	for i := 0; i < 3; i++ {
		_, err := f.service.Ingest(context.Background(), delivery("w-1", `{"id":1}`))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.handler.count())
	assert.Len(t, f.log.events, 1)
	assert.Equal(t, 2, f.observer.duplicates)

	// deliveries without an id are never deduplicated
	for i := 0; i < 2; i++ {
		_, err := f.service.Ingest(context.Background(), delivery("", `{"id":2}`))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.handler.count())
}

func TestIngest_HandlerFailureStillAccepted(t *testing.T) {
	f := newWebhookFixture()
	f.handler.err = errors.New("boom")

	_, err := f.service.Ingest(context.Background(), delivery("w-9", `{"id":9}`))
	require.NoError(t, err)
	assert.Equal(t, []string{WebhookFailed}, f.observer.results)
}

func TestDispatcher_RoutesByTopic(t *testing.T) {
	orders := &recordingHandler{topic: domain.TopicOrdersCreate}
	products := &recordingHandler{topic: domain.TopicProductsUpdate, err: errors.New("bad payload")}
	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(orders)
	d.RegisterHandler(products)

	require.NoError(t, d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: domain.TopicOrdersCreate}))
	assert.Equal(t, 1, orders.count())
	assert.Zero(t, products.count())

	err := d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: domain.TopicProductsUpdate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad payload")

	assert.NoError(t, d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "shop/update"}))
}
