// Package mongo stores users in a MongoDB collection, one document per user.
// Map keys in BSON must be strings, so progress trees are stored through
// string-keyed documents and converted at the repository boundary.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quiz-hub/level-manager/internal/domain/progress"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION
// ══════════════════════════════════════════════════════════════════════════════

// Connect opens a client for uri and pings the primary.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: failed to ping: %w", err)
	}

	return client, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UsersCollection is the collection holding user documents.
const UsersCollection = "users"

// UserRepository implements progress.UserRepository for MongoDB.
type UserRepository struct {
	users *mongo.Collection
	now   func() time.Time
}

// NewUserRepository creates a repository over db.users.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users: db.Collection(UsersCollection),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// FindByID returns a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*progress.UserEntity, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return doc.toEntity()
}

// Insert creates a new user with version 1.
func (r *UserRepository) Insert(ctx context.Context, user *progress.UserEntity) (*progress.UserEntity, error) {
	stored := user.WithProgress(user.Progress.Clone())
	stored.Version = 1

	doc := toUserDocument(stored)
	doc.CreatedAt = r.now()
	doc.UpdatedAt = doc.CreatedAt

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, shared.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return stored, nil
}

// Update replaces the progress document when the stored version still equals
// user.Version, then bumps user.Version.
func (r *UserRepository) Update(ctx context.Context, user *progress.UserEntity) error {
	doc := toUserDocument(user)

	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "version": user.Version},
		bson.M{
			"$set": bson.M{"progress": doc.Progress, "updated_at": r.now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if res.MatchedCount == 0 {
		n, err := r.users.CountDocuments(ctx, bson.M{"_id": doc.ID}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("failed to check user existence: %w", err)
		}
		if n == 0 {
			return shared.ErrUserNotFound
		}
		return shared.ErrUserConflict
	}

	user.Version++
	return nil
}

// ListIDs returns all user ids ordered by id.
func (r *UserRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	cur, err := r.users.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cur.Close(ctx)

	var ids []uuid.UUID
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode user id: %w", err)
		}
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", row.ID, err)
		}
		ids = append(ids, id)
	}

	return ids, cur.Err()
}
