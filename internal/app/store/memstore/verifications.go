package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store/emailverify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Verifications mirrors emailverify.Store with plaintext codes kept in
// memory. Codes are sequential so tests can predict them.
type Verifications struct {
	mu     sync.Mutex
	rows   map[primitive.ObjectID]*pendingCode
	seq    int
	Expiry time.Duration
	Now    func() time.Time
}

type pendingCode struct {
	v    emailverify.Verification
	code string
}

func NewVerifications() *Verifications {
	return &Verifications{
		rows:   make(map[primitive.ObjectID]*pendingCode),
		Expiry: emailverify.DefaultExpiry,
		Now:    time.Now,
	}
}

// CodeFor returns the pending plaintext code for userID.
func (m *Verifications) CodeFor(userID primitive.ObjectID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return "", false
	}
	return p.code, true
}

func (m *Verifications) Create(ctx context.Context, userID primitive.ObjectID, email string, isResend bool) (*emailverify.Issued, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()

	windowStart, resends := now, 0
	if prev, ok := m.rows[userID]; ok && now.Before(prev.v.WindowStart.Add(emailverify.ResendWindow)) {
		windowStart, resends = prev.v.WindowStart, prev.v.ResendCount
		if isResend && resends >= emailverify.MaxResends {
			return nil, emailverify.ErrTooManyResends
		}
	}
	if isResend {
		resends++
	}

	m.seq++
	code := fmt.Sprintf("%06d", 100000+m.seq)
	m.rows[userID] = &pendingCode{
		code: code,
		v: emailverify.Verification{
			ID:          primitive.NewObjectID(),
			UserID:      userID,
			Email:       email,
			ExpiresAt:   now.Add(m.Expiry),
			CreatedAt:   now,
			ResendCount: resends,
			WindowStart: windowStart,
		},
	}
	return &emailverify.Issued{Code: code, ResendCount: resends}, nil
}

func (m *Verifications) VerifyCode(ctx context.Context, userID primitive.ObjectID, code string) (*emailverify.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok || !m.Now().Before(p.v.ExpiresAt) {
		return nil, emailverify.ErrNotFound
	}
	if p.v.Attempts >= emailverify.MaxVerifyAttempts {
		return nil, emailverify.ErrTooManyAttempts
	}
	p.v.Attempts++
	if p.code != code {
		return nil, emailverify.ErrInvalidCode
	}
	delete(m.rows, userID)
	v := p.v
	return &v, nil
}
