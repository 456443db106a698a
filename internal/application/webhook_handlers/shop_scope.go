package webhook_handlers

import (
	"errors"

	"shopify-tenant-sync/internal/domain"

	"github.com/rs/zerolog"
)

// skipUnknownShop swallows not-found errors for shops that never installed
// the app, since redelivery cannot fix them.
func skipUnknownShop(logger zerolog.Logger, event *domain.WebhookEvent, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn().Str("topic", event.Topic).Str("shop", event.Shop).Msg("Webhook for unknown shop, skipping")
		return nil
	}
	return err
}
