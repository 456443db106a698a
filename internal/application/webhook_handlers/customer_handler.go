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

// CustomerHandler handles customer-related webhook events
type CustomerHandler struct {
	logger   zerolog.Logger
	entities *application.EntityService
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(logger zerolog.Logger, entities *application.EntityService) *CustomerHandler {
	return &CustomerHandler{
		logger:   logger,
		entities: entities,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomersCreate ||
		topic == domain.TopicCustomersUpdate ||
		topic == domain.TopicCustomersDelete
}

// Handle processes a customer webhook event. The payload's total_spent is
// taken as authoritative.
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var customer goshopify.Customer
	if err := json.Unmarshal(event.Payload, &customer); err != nil {
		return fmt.Errorf("failed to parse customer webhook payload: %w", err)
	}

	if event.Topic == domain.TopicCustomersDelete {
		h.logger.Info().Str("shop", event.Shop).Uint64("customerId", customer.Id).Msg("Customer deleted upstream, keeping local copy")
		return nil
	}
	if customer.Id == 0 {
		return fmt.Errorf("customer webhook payload has no id")
	}

	stored, err := h.entities.UpsertCustomer(ctx, event.Shop, application.CustomerInputFrom("", customer))
	if err != nil {
		return skipUnknownShop(h.logger, event, err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("customerId", stored.ExternalID).
		Msg("Customer upserted from webhook")
	return nil
}
