package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/normalize"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users is an in-memory store.IdentityRepository.
type Users struct {
	mu   sync.RWMutex
	rows map[primitive.ObjectID]models.User

	Writes int
	Err    error
}

var _ store.IdentityRepository = (*Users)(nil)

func NewUsers() *Users {
	return &Users{rows: make(map[primitive.ObjectID]models.User)}
}

// Put stores u as-is, for seeding tests.
func (m *Users) Put(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = normalize.Email(u.Email)
	m.rows[u.ID] = copyUser(u)
	return u
}

func (m *Users) Create(ctx context.Context, u models.User) (models.User, error) {
	if m.Err != nil {
		return models.User{}, m.Err
	}
	if !u.Role.Valid() {
		return models.User{}, errors.New("invalid role")
	}
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.AuthMethod == "" {
		u.AuthMethod = models.AuthPassword
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Email == u.Email {
			return models.User{}, store.ErrDuplicateEmail
		}
	}
	m.rows[u.ID] = copyUser(u)
	m.Writes++
	return copyUser(u), nil
}

func (m *Users) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	if m.Err != nil {
		return models.User{}, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.rows[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Users) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if m.Err != nil {
		return models.User{}, m.Err
	}
	email = normalize.Email(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.rows {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (m *Users) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := m.rows[id]; ok {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (m *Users) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return m.mutate(id, func(u *models.User) { u.IsVerified = true })
}

func (m *Users) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error {
	return m.mutate(id, func(u *models.User) {
		u.GoogleID = googleID
		u.IsVerified = true
	})
}

func (m *Users) PromoteToAdmin(ctx context.Context, email string) (bool, error) {
	u, err := m.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, m.mutate(u.ID, func(u *models.User) { u.Role = models.RoleAdmin })
}

func (m *Users) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok1 := m.rows[followerID]
	t, ok2 := m.rows[targetID]
	if !ok1 || !ok2 {
		return false, store.ErrNotFound
	}
	if f.Follows(targetID) {
		return false, nil
	}
	f.Following = append(f.Following, targetID)
	f.FollowingCount++
	m.rows[followerID] = f
	t = m.rows[targetID]
	t.Followers = append(t.Followers, followerID)
	t.FollowersCount++
	m.rows[targetID] = t
	m.Writes++
	return true, nil
}

func (m *Users) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok1 := m.rows[followerID]
	if _, ok2 := m.rows[targetID]; !ok1 || !ok2 {
		return false, store.ErrNotFound
	}
	if !f.Follows(targetID) {
		return false, nil
	}
	f.Following = without(f.Following, targetID)
	f.FollowingCount--
	m.rows[followerID] = f
	t := m.rows[targetID]
	t.Followers = without(t.Followers, followerID)
	t.FollowersCount--
	m.rows[targetID] = t
	m.Writes++
	return true, nil
}

func (m *Users) mutate(id primitive.ObjectID, fn func(*models.User)) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	m.rows[id] = u
	m.Writes++
	return nil
}

func without(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func copyUser(u models.User) models.User {
	u.Followers = append([]primitive.ObjectID(nil), u.Followers...)
	u.Following = append([]primitive.ObjectID(nil), u.Following...)
	return u
}
