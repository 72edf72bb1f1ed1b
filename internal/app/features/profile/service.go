// internal/app/features/profile/service.go
package profile

import (
	"context"
	"errors"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service reads public profiles and edits the follow graph.
type Service struct {
	Users store.IdentityRepository
}

// View is a public profile as seen by the caller.
type View struct {
	models.Profile
	IsFollowing bool `json:"isFollowing"`
	IsSelf      bool `json:"isSelf"`
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return models.User{}, apperr.Upstream("load user", err)
	}
	return u, nil
}

func (s *Service) view(ctx context.Context, act models.Actor, target models.User) (View, error) {
	v := View{Profile: target.Profile(), IsSelf: act.ID == target.ID}
	if v.IsSelf {
		return v, nil
	}
	me, err := s.load(ctx, act.ID)
	if err != nil {
		return View{}, err
	}
	v.IsFollowing = me.Follows(target.ID)
	return v, nil
}

// Get returns the profile of id as seen by act.
func (s *Service) Get(ctx context.Context, act models.Actor, id primitive.ObjectID) (View, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, act, u)
}

// Follow adds act→target. Following someone already followed is a no-op
// success; changed reports whether an edge was added.
func (s *Service) Follow(ctx context.Context, act models.Actor, target primitive.ObjectID) (View, bool, error) {
	return s.edge(ctx, act, target, s.Users.Follow)
}

// Unfollow removes act→target. Not following is a no-op success.
func (s *Service) Unfollow(ctx context.Context, act models.Actor, target primitive.ObjectID) (View, bool, error) {
	return s.edge(ctx, act, target, s.Users.Unfollow)
}

type edgeFunc func(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error)

func (s *Service) edge(ctx context.Context, act models.Actor, target primitive.ObjectID, apply edgeFunc) (View, bool, error) {
	if act.ID == target {
		return View{}, false, apperr.Validation("You cannot follow yourself")
	}
	changed, err := apply(ctx, act.ID, target)
	if errors.Is(err, store.ErrNotFound) {
		return View{}, false, apperr.NotFound("User not found")
	}
	if err != nil {
		return View{}, false, apperr.Upstream("update follow", err)
	}
	v, err := s.Get(ctx, act, target)
	return v, changed, err
}

// Followers lists the public profiles following id.
func (s *Service) Followers(ctx context.Context, id primitive.ObjectID) ([]models.Profile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.profiles(ctx, u.Followers)
}

// Following lists the public profiles id follows.
func (s *Service) Following(ctx context.Context, id primitive.ObjectID) ([]models.Profile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.profiles(ctx, u.Following)
}

// profiles resolves ids in order, skipping users that no longer exist.
func (s *Service) profiles(ctx context.Context, ids []primitive.ObjectID) ([]models.Profile, error) {
	out := make([]models.Profile, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("load users", err)
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u.Profile())
		}
	}
	return out, nil
}
