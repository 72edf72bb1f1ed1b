// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	CodeLength        = 6
	DefaultExpiry     = 10 * time.Minute
	BcryptCost        = 10
	MaxVerifyAttempts = 5
	MaxResends        = 3
	ResendWindow      = 10 * time.Minute
)

var (
	ErrNotFound        = errors.New("verification not found or expired")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrTooManyResends  = errors.New("too many resend requests")
)

// Verification is the pending OTP for one user. Only the bcrypt hash of
// the code is stored.
type Verification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      primitive.ObjectID `bson:"user_id"`
	Email       string             `bson:"email"`
	CodeHash    string             `bson:"code_hash"`
	ExpiresAt   time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt   time.Time          `bson:"created_at"`
	Attempts    int                `bson:"attempts"`
	ResendCount int                `bson:"resend_count"`
	WindowStart time.Time          `bson:"window_start"` // start of the resend window
}

// Issued is returned by Create. Code is the plaintext to mail.
type Issued struct {
	Code        string
	ResendCount int
}

// Store manages the email_verifications collection.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
	now    func() time.Time
}

// New uses DefaultExpiry when expiry is not positive.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection(Collection),
		expiry: expiry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Expiry() time.Duration { return s.expiry }

// Collection is the MongoDB collection holding pending codes.
const Collection = "email_verifications"

// IndexModels is the TTL index that purges expired codes plus the one
// pending code per user constraint.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_emailverify_expires_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("uniq_emailverify_user").SetUnique(true),
		},
	}
}

// Create replaces any pending code for userID with a fresh one. When
// isResend is set it counts against MaxResends within ResendWindow; the
// window carries over from the replaced record.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email string, isResend bool) (*Issued, error) {
	now := s.now()

	var prev Verification
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prev)
	havePrev := err == nil
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("load verification: %w", err)
	}

	windowStart, resends := now, 0
	if havePrev && now.Before(prev.WindowStart.Add(ResendWindow)) {
		windowStart, resends = prev.WindowStart, prev.ResendCount
		if isResend && resends >= MaxResends {
			return nil, ErrTooManyResends
		}
	}
	if isResend {
		resends++
	}

	code, err := newCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	v := Verification{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Email:       email,
		CodeHash:    string(hash),
		ExpiresAt:   now.Add(s.expiry),
		CreatedAt:   now,
		ResendCount: resends,
		WindowStart: windowStart,
	}
	_, err = s.c.ReplaceOne(ctx, bson.M{"user_id": userID}, v, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("store verification: %w", err)
	}
	return &Issued{Code: code, ResendCount: resends}, nil
}

// VerifyCode checks code against the pending record. Each call consumes
// one attempt, counted atomically before the comparison. A match deletes
// the record.
func (s *Store) VerifyCode(ctx context.Context, userID primitive.ObjectID, code string) (*Verification, error) {
	now := s.now()
	var v Verification
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"user_id":    userID,
			"expires_at": bson.M{"$gt": now},
			"attempts":   bson.M{"$lt": MaxVerifyAttempts},
		},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.c.CountDocuments(ctx, bson.M{"user_id": userID, "expires_at": bson.M{"$gt": now}})
		if cerr == nil && n > 0 {
			return nil, ErrTooManyAttempts
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load verification: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(code)) != nil {
		return nil, ErrInvalidCode
	}
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": v.ID}); err != nil {
		return nil, fmt.Errorf("consume verification: %w", err)
	}
	return &v, nil
}

func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// newCode returns a uniformly random 6-digit code with leading zeros allowed.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
