package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/2pbal/account-billing/internal/core/domain"
)

const collectionPayments = "payments"

// PaymentRepository implements ports.PaymentRepository using MongoDB.
type PaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{col: db.Collection(collectionPayments)}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.PaymentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByIntentID(ctx context.Context, intentID string) (*domain.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.PaymentRecord
	if err := r.col.FindOne(ctx, bson.M{"gateway_intent_id": intentID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &p, nil
}

func (r *PaymentRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	var out []*domain.PaymentRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	return out, nil
}

// Transition is a single conditional update: the filter carries the allowed
// predecessor statuses, so concurrent deliveries cannot step backwards.
func (r *PaymentRepository) Transition(
	ctx context.Context,
	intentID string,
	from []domain.PaymentStatus,
	to domain.PaymentStatus,
	outcome domain.PaymentOutcome,
	at time.Time,
) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"status":     to,
		"updated_at": at,
	}
	if outcome.PaymentMethod != "" {
		set["payment_method"] = outcome.PaymentMethod
	}
	if outcome.ReceiptURL != "" {
		set["receipt_url"] = outcome.ReceiptURL
	}
	update := bson.M{"$set": set}
	if outcome.FailureReason != "" {
		set["failure_reason"] = outcome.FailureReason
	} else {
		update["$unset"] = bson.M{"failure_reason": ""}
	}

	res, err := r.col.UpdateOne(ctx, transitionFilter(intentID, from), update)
	if err != nil {
		return false, fmt.Errorf("transition payment: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	found, err := exists(ctx, r.col, bson.M{"gateway_intent_id": intentID})
	if err != nil {
		return false, fmt.Errorf("transition payment: %w", err)
	}
	if !found {
		return false, domain.ErrPaymentNotFound
	}
	return false, nil
}

// transitionFilter matches the intent only while it is in one of the
// allowed predecessor statuses.
func transitionFilter(intentID string, from []domain.PaymentStatus) bson.M {
	return bson.M{
		"gateway_intent_id": intentID,
		"status":            bson.M{"$in": from},
	}
}

func (r *PaymentRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col,
		mongo.IndexModel{Keys: bson.D{{Key: "gateway_intent_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}}},
	)
}
