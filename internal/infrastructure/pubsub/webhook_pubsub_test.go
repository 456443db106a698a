package pubsub

import (
	"context"
	"testing"
	"time"

	"shopify-tenant-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRespectsFilter(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shopSub := ps.Subscribe(ctx, Filter{Shop: "a.myshopify.com"})
	topicSub := ps.Subscribe(ctx, Filter{Topics: []string{domain.TopicOrdersCreate}})

	ps.Publish(&domain.WebhookEvent{Topic: domain.TopicProductsUpdate, Shop: "a.myshopify.com"})
	ps.Publish(&domain.WebhookEvent{Topic: domain.TopicOrdersCreate, Shop: "b.myshopify.com"})

	got := <-shopSub.Events
	assert.Equal(t, domain.TopicProductsUpdate, got.Topic)
	assert.Len(t, shopSub.Events, 0)

	got = <-topicSub.Events
	assert.Equal(t, "b.myshopify.com", got.Shop)
	assert.Len(t, topicSub.Events, 0)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	sub := ps.Subscribe(ctx, Filter{})
	require.Equal(t, 1, ps.Subscribers())

	cancel()
	require.Eventually(t, func() bool { return ps.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-sub.Events
	assert.False(t, open)

	// publishing after removal must not panic
	ps.Publish(&domain.WebhookEvent{Topic: domain.TopicOrdersCreate})
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	sub := ps.Subscribe(context.Background(), Filter{})
	defer ps.Unsubscribe(sub.ID)

	for i := 0; i < subscriberBuffer+5; i++ {
		ps.Publish(&domain.WebhookEvent{Topic: domain.TopicOrdersCreate})
	}
	assert.Len(t, sub.Events, subscriberBuffer)
}
