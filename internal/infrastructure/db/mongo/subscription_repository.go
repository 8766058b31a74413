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

const collectionSubscriptions = "subscriptions"

// SubscriptionRepository implements ports.SubscriptionRepository using MongoDB.
type SubscriptionRepository struct {
	col *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{col: db.Collection(collectionSubscriptions)}
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.SubscriptionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*domain.SubscriptionRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *SubscriptionRepository) FindByGatewayID(ctx context.Context, gatewayID string) (*domain.SubscriptionRecord, error) {
	return r.findOne(ctx, bson.M{"gateway_subscription_id": gatewayID})
}

func (r *SubscriptionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.SubscriptionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	var out []*domain.SubscriptionRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	return out, nil
}

// ApplyState updates status, price and cancellation fields of a record that
// is not yet terminal.
func (r *SubscriptionRepository) ApplyState(ctx context.Context, gatewayID string, st domain.SubscriptionState, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"cancel_at_period_end": st.CancelAtPeriodEnd,
		"canceled_at":          st.CanceledAt,
		"updated_at":           at,
	}
	if st.Status != "" {
		set["status"] = st.Status
	}
	if st.PriceID != "" {
		set["gateway_price_id"] = st.PriceID
		set["amount"] = st.Amount
		set["currency"] = st.Currency
		set["interval"] = st.Interval
		set["interval_count"] = st.IntervalCount
	}

	return r.conditional(ctx, gatewayID, nonTerminalFilter(gatewayID), bson.M{"$set": set})
}

// AdvancePeriod writes the billing window unless the stored one ends later.
func (r *SubscriptionRepository) AdvancePeriod(ctx context.Context, gatewayID string, start, end, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"current_period_start": start,
		"current_period_end":   end,
		"updated_at":           at,
	}}
	return r.conditional(ctx, gatewayID, periodFilter(gatewayID, end), update)
}

func nonTerminalFilter(gatewayID string) bson.M {
	return bson.M{
		"gateway_subscription_id": gatewayID,
		"status":                  bson.M{"$nin": domain.TerminalSubscriptionStatuses},
	}
}

// periodFilter matches a record with no window yet or one ending no later
// than end, so a stale invoice never rolls the window back.
func periodFilter(gatewayID string, end time.Time) bson.M {
	return bson.M{
		"gateway_subscription_id": gatewayID,
		"$or": bson.A{
			bson.M{"current_period_end": nil},
			bson.M{"current_period_end": bson.M{"$lte": end}},
		},
	}
}

func (r *SubscriptionRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col,
		mongo.IndexModel{Keys: bson.D{{Key: "gateway_subscription_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}}},
	)
}

// conditional runs a filtered update and tells a failed precondition apart
// from a missing record.
func (r *SubscriptionRepository) conditional(ctx context.Context, gatewayID string, filter, update bson.M) (bool, error) {
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update subscription: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	found, err := exists(ctx, r.col, bson.M{"gateway_subscription_id": gatewayID})
	if err != nil {
		return false, fmt.Errorf("update subscription: %w", err)
	}
	if !found {
		return false, domain.ErrSubscriptionNotFound
	}
	return false, nil
}

func (r *SubscriptionRepository) findOne(ctx context.Context, filter bson.M) (*domain.SubscriptionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s domain.SubscriptionRecord
	if err := r.col.FindOne(ctx, filter).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return &s, nil
}
