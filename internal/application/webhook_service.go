package application

import (
	"context"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const webhookDedupeTTL = 7 * 24 * time.Hour

// Webhook ingestion outcomes, used as metric labels
const (
	WebhookAccepted  = "accepted"
	WebhookRejected  = "rejected"
	WebhookDuplicate = "duplicate"
	WebhookFailed    = "failed"
)

// SignatureVerifier checks a webhook body against its HMAC header
type SignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

// EventPublisher fans verified events out to live subscribers
type EventPublisher interface {
	Publish(event *domain.WebhookEvent)
}

// WebhookObserver records ingestion outcomes
type WebhookObserver interface {
	ObserveWebhook(topic, result string)
	ObserveDuplicate()
}

type nopWebhookObserver struct{}

func (nopWebhookObserver) ObserveWebhook(string, string) {}
func (nopWebhookObserver) ObserveDuplicate()             {}

// WebhookDelivery is one inbound webhook request as received
type WebhookDelivery struct {
	Topic     string
	Shop      string
	WebhookID string
	Signature string
	Payload   []byte
}

// WebhookService verifies, records and dispatches webhook deliveries
type WebhookService struct {
	verifier   SignatureVerifier
	dedupe     ports.WebhookDeduplicator
	log        ports.WebhookLogRepository
	publisher  EventPublisher
	dispatcher *WebhookDispatcher
	observer   WebhookObserver
	logger     zerolog.Logger
	now        func() time.Time
}

// WebhookServiceOptions holds the optional collaborators; nil members are skipped
type WebhookServiceOptions struct {
	Dedupe    ports.WebhookDeduplicator
	Log       ports.WebhookLogRepository
	Publisher EventPublisher
	Observer  WebhookObserver
}

// NewWebhookService creates a new webhook service
func NewWebhookService(verifier SignatureVerifier, dispatcher *WebhookDispatcher, opts WebhookServiceOptions, logger zerolog.Logger) *WebhookService {
	observer := opts.Observer
	if observer == nil {
		observer = nopWebhookObserver{}
	}
	return &WebhookService{
		verifier:   verifier,
		dedupe:     opts.Dedupe,
		log:        opts.Log,
		publisher:  opts.Publisher,
		dispatcher: dispatcher,
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

// Ingest verifies the delivery before anything else. An invalid signature
// returns ErrSignature and nothing is stored. After verification the
// delivery is always accepted; handler failures are logged only.
func (s *WebhookService) Ingest(ctx context.Context, d WebhookDelivery) (*domain.WebhookEvent, error) {
	if err := s.verifier.Verify(d.Payload, d.Signature); err != nil {
		s.logger.Warn().Str("topic", d.Topic).Str("shop", d.Shop).Msg("Rejected webhook with invalid signature")
		s.observer.ObserveWebhook(d.Topic, WebhookRejected)
		return nil, err
	}

	event := &domain.WebhookEvent{
		ID:         uuid.NewString(),
		WebhookID:  d.WebhookID,
		Topic:      d.Topic,
		Shop:       domain.NormalizeShopDomain(d.Shop),
		Payload:    d.Payload,
		Verified:   true,
		ReceivedAt: s.now().UTC(),
	}
	logger := s.logger.With().Str("topic", event.Topic).Str("shop", event.Shop).Str("webhookId", event.WebhookID).Logger()

	if s.dedupe != nil && event.WebhookID != "" {
		first, err := s.dedupe.FirstSeen(ctx, event.WebhookID, webhookDedupeTTL)
		if err != nil {
			logger.Warn().Err(err).Msg("Webhook dedupe check failed, processing anyway")
		} else if !first {
			logger.Info().Msg("Skipping duplicate webhook delivery")
			s.observer.ObserveDuplicate()
			s.observer.ObserveWebhook(event.Topic, WebhookDuplicate)
			return event, nil
		}
	}

	if s.log != nil {
		if err := s.log.LogWebhook(ctx, event); err != nil {
			logger.Error().Err(err).Msg("Failed to log webhook")
		}
	}

	if s.publisher != nil {
		s.publisher.Publish(event)
	}

	result := WebhookAccepted
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		logger.Error().Err(err).Msg("Webhook handler failed")
		result = WebhookFailed
	}
	s.observer.ObserveWebhook(event.Topic, result)

	logger.Info().Str("result", result).Msg("Webhook processed")
	return event, nil
}
