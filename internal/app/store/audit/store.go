// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth   = "auth"
	CategoryCourse = "course"
)

// Auth event types
const (
	EventSignup                   = "signup"
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedBanned        = "login_failed_banned"
	EventLoginFailedUnverified    = "login_failed_unverified"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventGoogleLogin              = "google_login"
	EventLogout                   = "logout"
	EventVerificationCodeSent     = "verification_code_sent"
	EventVerificationCodeFailed   = "verification_code_failed"
	EventEmailVerified            = "email_verified"
	EventUserFollowed             = "user_followed"
	EventUserUnfollowed           = "user_unfollowed"
)

// Course event types
const (
	EventCourseCreated  = "course_created"
	EventCourseUpdated  = "course_updated"
	EventCourseDeleted  = "course_deleted"
	EventCourseEnrolled = "course_enrolled"
)

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	UserID   *primitive.ObjectID `bson:"user_id,omitempty"`   // affected user
	ActorID  *primitive.ObjectID `bson:"actor_id,omitempty"`  // who acted, when not the user
	CourseID *primitive.ObjectID `bson:"course_id,omitempty"` // course events only

	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter narrows Query. Zero fields are ignored.
type QueryFilter struct {
	UserID    *primitive.ObjectID
	CourseID  *primitive.ObjectID
	Category  string
	EventType string
	Since     *time.Time
	Before    *primitive.ObjectID // keyset cursor: only events older than this id
	Limit     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Collection is the MongoDB collection holding audit events.
const Collection = "audit_events"

// IndexModels serves the newest-first queries by user, course and type.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_ts"),
		},
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_course_ts").SetSparse(true),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_ts"),
		},
	}
}

// Log records an event, filling ID and Timestamp when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns matching events, newest first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	query := bson.M{}
	if f.UserID != nil {
		query["user_id"] = *f.UserID
	}
	if f.CourseID != nil {
		query["course_id"] = *f.CourseID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.Since != nil {
		query["timestamp"] = bson.M{"$gte": *f.Since}
	}
	if f.Before != nil {
		query["_id"] = bson.M{"$lt": *f.Before}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountFailedLogins counts failed login events for userID since t.
func (s *Store) CountFailedLogins(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"category":  CategoryAuth,
		"user_id":   userID,
		"success":   false,
		"timestamp": bson.M{"$gte": since},
	})
}
