package domain

import "time"

// Webhook topics handled by the application
const (
	TopicAppUninstalled  = "app/uninstalled"
	TopicProductsCreate  = "products/create"
	TopicProductsUpdate  = "products/update"
	TopicProductsDelete  = "products/delete"
	TopicCustomersCreate = "customers/create"
	TopicCustomersUpdate = "customers/update"
	TopicCustomersDelete = "customers/delete"
	TopicOrdersCreate    = "orders/create"
	TopicOrdersUpdated   = "orders/updated"
	TopicOrdersPaid      = "orders/paid"
	TopicOrdersFulfilled = "orders/fulfilled"
	TopicOrdersCancelled = "orders/cancelled"
)

// DefaultWebhookTopics are registered for every shop after install
var DefaultWebhookTopics = []string{
	TopicAppUninstalled,
	TopicProductsCreate,
	TopicProductsUpdate,
	TopicCustomersCreate,
	TopicCustomersUpdate,
	TopicOrdersCreate,
	TopicOrdersUpdated,
}

// WebhookEvent represents a verified webhook delivery
type WebhookEvent struct {
	ID         string    `json:"id"`
	WebhookID  string    `json:"webhook_id,omitempty"`
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	Payload    []byte    `json:"-"`
	Verified   bool      `json:"verified"`
	ReceivedAt time.Time `json:"received_at"`
}
