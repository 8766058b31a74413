package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

const collectionAccounts = "accounts"

// AccountRepository implements ports.AccountRepository using MongoDB.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

// Create inserts a new account; the unique email index rejects duplicates.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a.Email = strings.ToLower(a.Email)
	if a.Version == 0 {
		a.Version = 1
	}
	if _, err := r.col.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

// Update replaces the document only if nobody wrote it since a was read.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	next := *a
	next.Email = strings.ToLower(a.Email)
	next.Version = a.Version + 1
	res, err := r.col.ReplaceOne(ctx, accountVersionFilter(a.ID, a.Version), &next)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrStale(ctx, a.ID)
	}
	a.Email, a.Version = next.Email, next.Version
	return nil
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, a *domain.Account, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"last_login_at": at},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var fresh domain.Account
	err := r.col.FindOneAndUpdate(ctx, loginFilter(a.ID, a.PasswordHash), update, opts).Decode(&fresh)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r.missOrStale(ctx, a.ID)
	}
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	*a = fresh
	return nil
}

func (r *AccountRepository) SetGatewayCustomer(ctx context.Context, id, customerID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"gateway_customer_id": customerID, "updated_at": at},
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return fmt.Errorf("set gateway customer: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// List returns a page of accounts sorted by created_at descending.
func (r *AccountRepository) List(ctx context.Context, f ports.ListAccountsFilter) ([]*domain.Account, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Search != "" {
		filter["email"] = primitive.Regex{Pattern: regexp.QuoteMeta(strings.ToLower(f.Search)), Options: "i"}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	var out []*domain.Account
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode accounts: %w", err)
	}
	return out, total, nil
}

// EnsureIndexes creates the unique email index and the listing index.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col,
		mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "role", Value: 1}}},
	)
}

// missOrStale tells a deleted account apart from a failed precondition.
func (r *AccountRepository) missOrStale(ctx context.Context, id string) error {
	found, err := exists(ctx, r.col, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if !found {
		return domain.ErrAccountNotFound
	}
	return domain.ErrStaleAccount
}

// accountVersionFilter matches the account at exactly version. Documents
// written before versioning have no field and count as version 0.
func accountVersionFilter(id string, version int64) bson.M {
	if version == 0 {
		return bson.M{"_id": id, "version": bson.M{"$in": bson.A{int64(0), nil}}}
	}
	return bson.M{"_id": id, "version": version}
}

func loginFilter(id, passwordHash string) bson.M {
	return bson.M{"_id": id, "active": true, "password_hash": passwordHash}
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.Account
	if err := r.col.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}
