package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/normalize"
	"github.com/dalemusser/learnhub/internal/app/system/txn"
	"github.com/dalemusser/learnhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Store struct {
	c   *mongo.Collection
	log *zap.Logger
}

var _ store.IdentityRepository = (*Store)(nil)

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{c: db.Collection(Collection), log: logger}
}

// Collection is the MongoDB collection holding identities.
const Collection = "users"

// IndexModels is the unique email index plus the lookup indexes.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_users_email")},
		{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetSparse(true).SetName("idx_users_google_id")},
		{Keys: bson.D{{Key: "name_ci", Value: 1}}, Options: options.Index().SetName("idx_users_name_ci")},
	}
}

var (
	errBadRole       = errors.New(`role must be "admin"|"instructor"|"student"`)
	errBadAuthMethod = errors.New(`auth_method must be "password"|"google"`)
)

// Create inserts a new user after normalizing fields. Email uniqueness is
// enforced by the unique index; a collision returns store.ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	if !u.Role.Valid() {
		return models.User{}, errBadRole
	}
	if u.AuthMethod == "" {
		u.AuthMethod = models.AuthPassword
	}
	if !models.IsValidAuthMethod(u.AuthMethod) {
		return models.User{}, errBadAuthMethod
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, store.ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByIDs batch-loads users for populating course payloads and follow lists.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	proj := options.Find().SetProjection(bson.M{"password_hash": 0, "followers": 0, "following": 0})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, proj)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkVerified flags the user's email as verified.
func (s *Store) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"is_verified": true})
}

// LinkGoogle records the Google subject on an existing account. Google has
// verified the address, so the account is verified too.
func (s *Store) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error {
	return s.set(ctx, id, bson.M{"google_id": googleID, "is_verified": true})
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PromoteToAdmin sets role=admin on the user with email.
func (s *Store) PromoteToAdmin(ctx context.Context, email string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{"role": models.RoleAdmin, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Follow graph                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// Follow adds follower→target. Each side is a guarded $addToSet + $inc so a
// repeated call changes nothing; both sides run in one transaction when
// the deployment supports it.
func (s *Store) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error) {
	if err := s.requireExists(ctx, targetID); err != nil {
		return false, err
	}
	changed := false
	err := txn.Run(ctx, s.c.Database().Client(), s.log, func(ctx context.Context) error {
		changed = false
		now := time.Now().UTC()
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": followerID, "following": bson.M{"$ne": targetID}},
			bson.M{
				"$addToSet": bson.M{"following": targetID},
				"$inc":      bson.M{"following_count": 1},
				"$set":      bson.M{"updated_at": now},
			})
		if err != nil {
			return err
		}
		if res.ModifiedCount == 0 {
			return nil
		}
		changed = true
		_, err = s.c.UpdateOne(ctx,
			bson.M{"_id": targetID, "followers": bson.M{"$ne": followerID}},
			bson.M{
				"$addToSet": bson.M{"followers": followerID},
				"$inc":      bson.M{"followers_count": 1},
				"$set":      bson.M{"updated_at": now},
			})
		return err
	})
	return changed, err
}

// Unfollow removes follower→target; counters only move when the edge existed.
func (s *Store) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error) {
	if err := s.requireExists(ctx, targetID); err != nil {
		return false, err
	}
	changed := false
	err := txn.Run(ctx, s.c.Database().Client(), s.log, func(ctx context.Context) error {
		changed = false
		now := time.Now().UTC()
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": followerID, "following": targetID},
			bson.M{
				"$pull": bson.M{"following": targetID},
				"$inc":  bson.M{"following_count": -1},
				"$set":  bson.M{"updated_at": now},
			})
		if err != nil {
			return err
		}
		if res.ModifiedCount == 0 {
			return nil
		}
		changed = true
		_, err = s.c.UpdateOne(ctx,
			bson.M{"_id": targetID, "followers": followerID},
			bson.M{
				"$pull": bson.M{"followers": followerID},
				"$inc":  bson.M{"followers_count": -1},
				"$set":  bson.M{"updated_at": now},
			})
		return err
	})
	return changed, err
}

func (s *Store) requireExists(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
