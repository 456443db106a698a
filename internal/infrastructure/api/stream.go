package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shopify-tenant-sync/internal/auth"
	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
)

const streamHeartbeat = 25 * time.Second

// TenantLookup resolves the caller's tenant
type TenantLookup interface {
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
}

// EventSubscriber hands out live webhook subscriptions
type EventSubscriber interface {
	Subscribe(ctx context.Context, filter pubsub.Filter) *pubsub.Subscription
}

type streamEvent struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	Shop       string          `json:"shop"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// WebhookHistory lists logged webhook deliveries
type WebhookHistory interface {
	ListRecent(ctx context.Context, shop string, limit int64) ([]*domain.WebhookEvent, error)
}

type streamHandler struct {
	tenants TenantLookup
	events  EventSubscriber
	history WebhookHistory
	logger  zerolog.Logger
}

func (h *streamHandler) callerTenant(r *http.Request) (*domain.Tenant, error) {
	return callerTenant(r, h.tenants)
}

func callerTenant(r *http.Request, tenants TenantLookup) (*domain.Tenant, error) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil || p.TenantID == "" {
		return nil, domain.NewError(domain.KindNotFound, "resolve caller", errors.New("token is not bound to a tenant"))
	}
	tenant, err := tenants.FindByID(r.Context(), p.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.NewError(domain.KindNotFound, "resolve caller", fmt.Errorf("tenant %s not found", p.TenantID))
	}
	return tenant, nil
}

// recent lists the caller's latest logged webhook deliveries
func (h *streamHandler) recent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, h.logger, domain.NewError(domain.KindNotFound, "recent webhooks", errors.New("webhook log is not enabled")))
		return
	}
	tenant, err := h.callerTenant(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	events, err := h.history.ListRecent(r.Context(), tenant.Domain, int64(limit))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]streamEvent, 0, len(events))
	for _, e := range events {
		out = append(out, toStreamEvent(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// serve streams the caller's verified webhook events as server-sent events
func (h *streamHandler) serve(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, fmt.Errorf("streaming unsupported"))
		return
	}

	tenant, err := h.callerTenant(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sub := h.events.Subscribe(r.Context(), pubsub.Filter{Shop: tenant.Domain})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-sub.Events:
			if !open {
				return
			}
			data, err := json.Marshal(toStreamEvent(event))
			if err != nil {
				h.logger.Warn().Err(err).Str("topic", event.Topic).Msg("Failed to encode stream event")
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: webhook\ndata: %s\n\n", event.ID, data)
			flusher.Flush()
		}
	}
}

func toStreamEvent(e *domain.WebhookEvent) streamEvent {
	out := streamEvent{ID: e.ID, Topic: e.Topic, Shop: e.Shop, ReceivedAt: e.ReceivedAt}
	if json.Valid(e.Payload) {
		out.Payload = e.Payload
	}
	return out
}
