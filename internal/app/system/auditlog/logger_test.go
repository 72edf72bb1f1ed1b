package auditlog_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dalemusser/learnhub/internal/app/store/audit"
	"github.com/dalemusser/learnhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *memSink) Log(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *auditlog.Logger
	req := httptest.NewRequest("GET", "/", nil)
	l.Log(context.Background(), audit.Event{EventType: "x"})
	l.LoginSuccess(context.Background(), req, primitive.NewObjectID(), "password")
	l.Logout(context.Background(), req, "not-an-id")
}

func TestLogger_Modes(t *testing.T) {
	tests := []struct {
		mode       string
		wantSink   int
		wantZapLog int
	}{
		{auditlog.ModeAll, 1, 1},
		{auditlog.ModeDB, 1, 0},
		{auditlog.ModeLog, 0, 1},
		{auditlog.ModeOff, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			sink := &memSink{}
			l := auditlog.New(sink, zap.New(core), auditlog.Config{Auth: tt.mode, Course: auditlog.ModeOff})

			req := httptest.NewRequest("POST", "/user/login", nil)
			l.LoginSuccess(context.Background(), req, primitive.NewObjectID(), "password")

			if len(sink.events) != tt.wantSink {
				t.Errorf("sink events = %d, want %d", len(sink.events), tt.wantSink)
			}
			if logs.Len() != tt.wantZapLog {
				t.Errorf("zap entries = %d, want %d", logs.Len(), tt.wantZapLog)
			}
		})
	}
}

func TestLogger_CategoryRouting(t *testing.T) {
	sink := &memSink{}
	l := auditlog.New(sink, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeOff, Course: auditlog.ModeDB})
	req := httptest.NewRequest("POST", "/course/create", nil)

	l.LoginSuccess(context.Background(), req, primitive.NewObjectID(), "password")
	l.Course(context.Background(), req, audit.EventCourseCreated, primitive.NewObjectID(), primitive.NewObjectID(), "Go")

	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1", len(sink.events))
	}
	e := sink.events[0]
	if e.Category != audit.CategoryCourse || e.CourseID == nil || e.Details["title"] != "Go" {
		t.Errorf("event = %+v", e)
	}
}

func TestLogger_ClientIP(t *testing.T) {
	sink := &memSink{}
	l := auditlog.New(sink, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeDB})
	req := httptest.NewRequest("POST", "/user/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	l.LoginFailed(context.Background(), req, nil, audit.EventLoginFailedUserNotFound, "user not found", "a@b.co")

	if got := sink.events[0].IP; got != "203.0.113.7" {
		t.Errorf("IP = %q", got)
	}
	if sink.events[0].Success {
		t.Error("failed login recorded as success")
	}
}

func TestLogger_SinkErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := &memSink{err: errors.New("db down")}
	l := auditlog.New(sink, zap.New(core), auditlog.Config{Auth: auditlog.ModeDB})

	l.Logout(context.Background(), httptest.NewRequest("POST", "/user/logout", nil), primitive.NewObjectID().Hex())

	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("sink failure not logged")
	}
}

func TestLogger_Follow(t *testing.T) {
	sink := &memSink{}
	l := auditlog.New(sink, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeDB})
	actor, target := primitive.NewObjectID(), primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/profile/user/x/follow", nil)

	l.Follow(context.Background(), req, actor, target, true)
	l.Follow(context.Background(), req, actor, target, false)

	if len(sink.events) != 2 {
		t.Fatalf("events = %d", len(sink.events))
	}
	e := sink.events[0]
	if e.EventType != audit.EventUserFollowed || *e.ActorID != actor || *e.UserID != target {
		t.Errorf("follow event = %+v", e)
	}
	if sink.events[1].EventType != audit.EventUserUnfollowed {
		t.Errorf("unfollow event type = %q", sink.events[1].EventType)
	}
}
