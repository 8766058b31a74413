package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/2pbal/account-billing/internal/core/domain"
)

const collectionWebhookEvents = "webhook_events"

// WebhookEventRepository implements ports.WebhookEventRepository. The
// provider event id is the document _id, so the insert itself is the
// uniqueness check.
type WebhookEventRepository struct {
	col *mongo.Collection
}

func NewWebhookEventRepository(db *mongo.Database) *WebhookEventRepository {
	return &WebhookEventRepository{col: db.Collection(collectionWebhookEvents)}
}

func (r *WebhookEventRepository) Record(ctx context.Context, rec *domain.WebhookEventRecord) (*domain.WebhookEventRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := *rec
	if doc.Attempts == 0 {
		doc.Attempts = 1
	}
	_, err := r.col.InsertOne(ctx, &doc)
	if err == nil {
		return &doc, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("record webhook event: %w", err)
	}

	var stored domain.WebhookEventRecord
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": rec.EventID},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return nil, false, fmt.Errorf("record webhook event: %w", err)
	}
	return &stored, false, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	return r.update(ctx, eventID, bson.M{
		"$set":   bson.M{"processed_at": at},
		"$unset": bson.M{"last_error": ""},
	})
}

func (r *WebhookEventRepository) MarkFailed(ctx context.Context, eventID, reason string) error {
	return r.update(ctx, eventID, bson.M{"$set": bson.M{"last_error": reason}})
}

func (r *WebhookEventRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col,
		mongo.IndexModel{Keys: bson.D{{Key: "object_id", Value: 1}, {Key: "received_at", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "processed_at", Value: 1}}},
	)
}

func (r *WebhookEventRepository) update(ctx context.Context, eventID string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
