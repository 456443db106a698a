package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"shopify-tenant-sync/internal/application"
	"shopify-tenant-sync/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related webhook events
type OrderHandler struct {
	logger   zerolog.Logger
	entities *application.EntityService
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(logger zerolog.Logger, entities *application.EntityService) *OrderHandler {
	return &OrderHandler{
		logger:   logger,
		entities: entities,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic string) bool {
	return topic == domain.TopicOrdersCreate ||
		topic == domain.TopicOrdersUpdated ||
		topic == domain.TopicOrdersCancelled ||
		topic == domain.TopicOrdersPaid ||
		topic == domain.TopicOrdersFulfilled
}

// Handle upserts the order. Only orders/create adds the total to the
// customer's spend, so updates to the same order are not counted twice.
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var order goshopify.Order
	if err := json.Unmarshal(event.Payload, &order); err != nil {
		return fmt.Errorf("failed to parse order webhook payload: %w", err)
	}
	if order.Id == 0 {
		return fmt.Errorf("order webhook payload has no id")
	}

	in := application.OrderInputFrom("", order)
	stored, err := h.entities.UpsertOrder(ctx, event.Shop, in)
	if err != nil {
		return skipUnknownShop(h.logger, event, err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("orderId", stored.ExternalID).
		Str("totalPrice", stored.TotalPrice.String()).
		Int("lineItems", len(stored.LineItems)).
		Msg("Order upserted from webhook")

	if event.Topic != domain.TopicOrdersCreate || in.CustomerExternalID == "" {
		return nil
	}

	customer, err := h.entities.RecordOrderSpend(ctx, event.Shop, in.CustomerExternalID, in.TotalPrice)
	if err != nil {
		return skipUnknownShop(h.logger, event, err)
	}
	h.logger.Debug().
		Str("shop", event.Shop).
		Str("customerId", customer.ExternalID).
		Str("totalSpent", customer.TotalSpent.String()).
		Msg("Customer spend incremented")
	return nil
}
