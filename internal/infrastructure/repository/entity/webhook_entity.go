package entity

import (
	"time"

	"shopify-tenant-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookDoc represents a verified webhook delivery in MongoDB
type MongoWebhookDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	EventID    string             `bson:"eventId"`
	WebhookID  string             `bson:"webhookId,omitempty"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	Payload    string             `bson:"payload"`
	Verified   bool               `bson:"verified"`
	ReceivedAt time.Time          `bson:"receivedAt"`
}

// ToDomain converts the MongoDB document to a domain event
func (d *MongoWebhookDoc) ToDomain() *domain.WebhookEvent {
	id := d.EventID
	if id == "" {
		id = d.ID.Hex()
	}
	return &domain.WebhookEvent{
		ID:         id,
		WebhookID:  d.WebhookID,
		Topic:      d.Topic,
		Shop:       d.Shop,
		Payload:    []byte(d.Payload),
		Verified:   d.Verified,
		ReceivedAt: d.ReceivedAt,
	}
}

// MongoWebhookDocFromDomain converts a domain event to a MongoDB document
func MongoWebhookDocFromDomain(event *domain.WebhookEvent) *MongoWebhookDoc {
	return &MongoWebhookDoc{
		EventID:    event.ID,
		WebhookID:  event.WebhookID,
		Topic:      event.Topic,
		Shop:       event.Shop,
		Payload:    string(event.Payload),
		Verified:   event.Verified,
		ReceivedAt: event.ReceivedAt,
	}
}
