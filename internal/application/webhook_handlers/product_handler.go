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

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	logger   zerolog.Logger
	entities *application.EntityService
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(logger zerolog.Logger, entities *application.EntityService) *ProductHandler {
	return &ProductHandler{
		logger:   logger,
		entities: entities,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == domain.TopicProductsCreate ||
		topic == domain.TopicProductsUpdate ||
		topic == domain.TopicProductsDelete
}

// Handle processes a product webhook event
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var product goshopify.Product
	if err := json.Unmarshal(event.Payload, &product); err != nil {
		return fmt.Errorf("failed to parse product webhook payload: %w", err)
	}

	if event.Topic == domain.TopicProductsDelete {
		h.logger.Info().Str("shop", event.Shop).Uint64("productId", product.Id).Msg("Product deleted upstream, keeping local copy")
		return nil
	}
	if product.Id == 0 {
		return fmt.Errorf("product webhook payload has no id")
	}

	in := application.ProductInputFrom("", product)
	stored, err := h.entities.UpsertProduct(ctx, event.Shop, in)
	if err != nil {
		return skipUnknownShop(h.logger, event, err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("productId", stored.ExternalID).
		Str("price", stored.Price.String()).
		Msg("Product upserted from webhook")
	return nil
}
