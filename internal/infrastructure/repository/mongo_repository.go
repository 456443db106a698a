package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/repository/entity"
	"shopify-tenant-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoWebhookLog implements WebhookLogRepository using MongoDB
type MongoWebhookLog struct {
	webhooksCollection *mongo.Collection
}

var _ ports.WebhookLogRepository = (*MongoWebhookLog)(nil)

// NewMongoWebhookLog creates a new MongoDB webhook log
func NewMongoWebhookLog(db *mongo.Database) *MongoWebhookLog {
	return &MongoWebhookLog{
		webhooksCollection: db.Collection("webhook_events"),
	}
}

// EnsureIndexes creates the lookup index used by ListRecent
func (r *MongoWebhookLog) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "shop", Value: 1}, {Key: "receivedAt", Value: -1}},
	}
	if _, err := r.webhooksCollection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create webhook index: %w", err)
	}
	return nil
}

// LogWebhook logs a webhook event
func (r *MongoWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookDocFromDomain(event)
	doc.ID = primitive.NewObjectID()
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = time.Now()
	}

	_, err := r.webhooksCollection.InsertOne(ctx, doc)
	if err != nil {
		return domain.RepositoryError("log webhook", err)
	}
	return nil
}

// ListRecent retrieves the newest events for a shop
func (r *MongoWebhookLog) ListRecent(ctx context.Context, shop string, limit int64) ([]*domain.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "receivedAt", Value: -1}}).SetLimit(limit)

	cursor, err := r.webhooksCollection.Find(ctx, bson.M{"shop": shop}, opts)
	if err != nil {
		return nil, domain.RepositoryError("list webhooks", err)
	}
	defer cursor.Close(ctx)

	var events []*domain.WebhookEvent
	for cursor.Next(ctx) {
		var doc entity.MongoWebhookDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode webhook event: %w", err)
		}
		events = append(events, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return events, nil
}
