// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/learnhub/internal/app/store/audit"
	"github.com/dalemusser/learnhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	ModeAll = "all" // MongoDB and zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// ValidMode reports whether s is one of the destination settings.
func ValidMode(s string) bool {
	switch s {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config selects where each category of events goes.
type Config struct {
	Auth   string
	Course string
}

// Sink persists events. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, e audit.Event) error
}

// Logger writes audit events to a Sink and/or zap. A nil *Logger is a no-op.
type Logger struct {
	sink   Sink
	zapLog *zap.Logger
	config Config
}

func New(sink Sink, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{sink: sink, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(e audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	}
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", e.UserID.Hex()))
	}
	if e.ActorID != nil {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	if e.CourseID != nil {
		fields = append(fields, zap.String("course_id", e.CourseID.Hex()))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if e.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log routes e according to its category's setting. Unknown categories go
// everywhere.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}

	mode := ModeAll
	switch e.Category {
	case audit.CategoryAuth:
		mode = l.config.Auth
	case audit.CategoryCourse:
		mode = l.config.Course
	}
	if mode == ModeOff || mode == "" {
		return
	}

	if mode == ModeAll || mode == ModeLog {
		l.logToZap(e)
	}
	if (mode == ModeAll || mode == ModeDB) && l.sink != nil {
		if err := l.sink.Log(ctx, e); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", e.EventType),
			)
		}
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Authentication events                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (l *Logger) authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, ok bool, reason string, details map[string]string) audit.Event {
	return audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       ok,
		FailureReason: reason,
		Details:       details,
	}
}

func (l *Logger) Signup(ctx context.Context, r *http.Request, userID primitive.ObjectID, role, method string) {
	l.Log(ctx, l.authEvent(r, audit.EventSignup, &userID, true, "", map[string]string{
		"role":        role,
		"auth_method": method,
	}))
}

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	l.Log(ctx, l.authEvent(r, audit.EventLoginSuccess, &userID, true, "", map[string]string{
		"auth_method": method,
	}))
}

// LoginFailed records a rejected login. userID is nil when the email did
// not match any account.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, userID *primitive.ObjectID, eventType, reason, email string) {
	l.Log(ctx, l.authEvent(r, eventType, userID, false, reason, map[string]string{
		"email": email,
	}))
}

func (l *Logger) GoogleLogin(ctx context.Context, r *http.Request, userID primitive.ObjectID, created bool) {
	d := map[string]string{"created": "false"}
	if created {
		d["created"] = "true"
	}
	l.Log(ctx, l.authEvent(r, audit.EventGoogleLogin, &userID, true, "", d))
}

// Logout accepts the hex ID carried by the session user.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDHex string) {
	var uid *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDHex); err == nil {
		uid = &oid
	}
	l.Log(ctx, l.authEvent(r, audit.EventLogout, uid, true, "", nil))
}

func (l *Logger) VerificationCodeSent(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, l.authEvent(r, audit.EventVerificationCodeSent, &userID, true, "", map[string]string{
		"email": email,
	}))
}

func (l *Logger) VerificationCodeFailed(ctx context.Context, r *http.Request, userID primitive.ObjectID, reason string) {
	l.Log(ctx, l.authEvent(r, audit.EventVerificationCodeFailed, &userID, false, reason, nil))
}

func (l *Logger) EmailVerified(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, l.authEvent(r, audit.EventEmailVerified, &userID, true, "", nil))
}

// Follow records actorID following (or, with followed=false, unfollowing)
// targetID. Follow events share the auth setting.
func (l *Logger) Follow(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, followed bool) {
	eventType := audit.EventUserFollowed
	if !followed {
		eventType = audit.EventUserUnfollowed
	}
	e := l.authEvent(r, eventType, &targetID, true, "", nil)
	e.ActorID = &actorID
	l.Log(ctx, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Course events                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// Course records a course mutation by actor. title may be empty.
func (l *Logger) Course(ctx context.Context, r *http.Request, eventType string, actorID, courseID primitive.ObjectID, title string) {
	var d map[string]string
	if title != "" {
		d = map[string]string{"title": title}
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCourse,
		EventType: eventType,
		ActorID:   &actorID,
		CourseID:  &courseID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   d,
	})
}

// Enrolled records studentID joining courseID.
func (l *Logger) Enrolled(ctx context.Context, r *http.Request, studentID, courseID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCourse,
		EventType: audit.EventCourseEnrolled,
		UserID:    &studentID,
		CourseID:  &courseID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}
