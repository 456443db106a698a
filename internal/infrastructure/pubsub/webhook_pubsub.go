package pubsub

import (
	"context"
	"slices"
	"sync"

	"shopify-tenant-sync/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const subscriberBuffer = 16

// Subscription receives webhook events matching its filter until its
// context ends
type Subscription struct {
	ID     string
	Filter Filter
	Events chan *domain.WebhookEvent
	ctx    context.Context
	cancel context.CancelFunc
}

// Filter narrows a subscription. Zero values match everything.
type Filter struct {
	Topics []string
	Shop   string
}

func (f Filter) matches(event *domain.WebhookEvent) bool {
	if len(f.Topics) > 0 && !slices.Contains(f.Topics, event.Topic) {
		return false
	}
	return f.Shop == "" || f.Shop == event.Shop
}

// WebhookPubSub fans verified webhook events out to live subscribers
type WebhookPubSub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	logger zerolog.Logger
}

// NewWebhookPubSub creates a new webhook pub/sub
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a subscription that is removed when ctx is done
func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter Filter) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Filter: filter,
		Events: make(chan *domain.WebhookEvent, subscriberBuffer),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.subs[sub.ID] = sub
	ps.mu.Unlock()

	ps.logger.Debug().Str("subscriptionId", sub.ID).Str("shop", filter.Shop).Msg("Webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(sub.ID)
	}()
	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (ps *WebhookPubSub) Unsubscribe(id string) {
	ps.mu.Lock()
	sub, ok := ps.subs[id]
	if ok {
		delete(ps.subs, id)
		close(sub.Events)
	}
	ps.mu.Unlock()

	if ok {
		sub.cancel()
		ps.logger.Debug().Str("subscriptionId", id).Msg("Webhook subscription removed")
	}
}

// Publish delivers event to every matching subscriber without blocking.
// Slow subscribers drop events.
func (ps *WebhookPubSub) Publish(event *domain.WebhookEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for _, sub := range ps.subs {
		if !sub.Filter.matches(event) {
			continue
		}
		select {
		case sub.Events <- event:
			delivered++
		default:
			ps.logger.Warn().Str("subscriptionId", sub.ID).Str("topic", event.Topic).Msg("Subscriber buffer full, dropping event")
		}
	}

	if delivered > 0 {
		ps.logger.Debug().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Int("subscribers", delivered).
			Msg("Published webhook event")
	}
}

// Subscribers returns the number of live subscriptions
func (ps *WebhookPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs)
}
