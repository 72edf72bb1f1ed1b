package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/app/system/timeouts"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher: it re-reads the ban flag on each
// authenticated request. The role is not refreshed; it stays as issued in
// the token.
type Fetcher struct {
	users *mongo.Collection
}

var _ auth.UserFetcher = (*Fetcher)(nil)

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection(Collection)}
}

// FetchUser returns (nil, nil) when the id is malformed or the user is gone.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) (*auth.SessionUser, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{"_id": 1, "name": 1, "role": 1, "is_banned": 1})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &auth.SessionUser{
		ID:     u.ID.Hex(),
		Name:   u.Name,
		Role:   string(u.Role),
		Banned: u.IsBanned,
	}, nil
}

// RepoFetcher adapts any IdentityRepository to auth.UserFetcher.
type RepoFetcher struct {
	Users store.IdentityRepository
}

func (f RepoFetcher) FetchUser(ctx context.Context, userID string) (*auth.SessionUser, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}
	u, err := f.Users.GetByID(ctx, oid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &auth.SessionUser{ID: u.ID.Hex(), Name: u.Name, Role: string(u.Role), Banned: u.IsBanned}, nil
}
