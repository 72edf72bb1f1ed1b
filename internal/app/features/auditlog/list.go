// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store/audit"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/learnhub/internal/app/system/paging"
	"github.com/dalemusser/learnhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type eventView struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Category  string            `json:"category"`
	EventType string            `json:"eventType"`
	UserID    string            `json:"userId,omitempty"`
	ActorID   string            `json:"actorId,omitempty"`
	CourseID  string            `json:"courseId,omitempty"`
	IP        string            `json:"ip"`
	Success   bool              `json:"success"`
	Reason    string            `json:"failureReason,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

type listResult struct {
	Events     []eventView `json:"events"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

func toView(e audit.Event) eventView {
	return eventView{
		ID:        e.ID.Hex(),
		Timestamp: e.Timestamp,
		Category:  e.Category,
		EventType: e.EventType,
		UserID:    hexOrEmpty(e.UserID),
		ActorID:   hexOrEmpty(e.ActorID),
		CourseID:  hexOrEmpty(e.CourseID),
		IP:        e.IP,
		Success:   e.Success,
		Reason:    e.FailureReason,
		Details:   e.Details,
	}
}

// parseFilter reads category, eventType, userId, courseId, since and
// before. since accepts RFC 3339 or a look-back duration such as "24h".
func parseFilter(r *http.Request, now time.Time) (audit.QueryFilter, error) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("eventType")),
	}
	var details []apperr.FieldError

	for _, p := range []struct {
		name string
		dst  **primitive.ObjectID
	}{
		{"userId", &f.UserID},
		{"courseId", &f.CourseID},
		{"before", &f.Before},
	} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			details = append(details, apperr.FieldError{Field: p.name, Message: "must be an id"})
			continue
		}
		*p.dst = &id
	}

	if v := strings.TrimSpace(q.Get("since")); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Since = &t
		} else if d, err := time.ParseDuration(v); err == nil && d > 0 {
			t := now.Add(-d)
			f.Since = &t
		} else {
			details = append(details, apperr.FieldError{Field: "since", Message: "must be RFC 3339 or a duration like 24h"})
		}
	}

	if len(details) > 0 {
		return f, apperr.Validation("Invalid filter", details...)
	}
	return f, nil
}

// ServeList handles GET /audit, newest first. Pass nextCursor back as
// ?before= to read the following page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, time.Now().UTC())
	if err != nil {
		jsonresp.Error(w, r, h.Log, err)
		return
	}
	limit := paging.ParseLimit(r)
	f.Limit = paging.LimitPlusOne(limit)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit list")
	defer cancel()

	events, err := h.Events.Query(ctx, f)
	if err != nil {
		jsonresp.Error(w, r, h.Log, apperr.Upstream("query audit events", err))
		return
	}
	hasNext := paging.Trim(&events, limit)

	out := listResult{Events: make([]eventView, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, toView(e))
	}
	if hasNext && len(events) > 0 {
		out.NextCursor = events[len(events)-1].ID.Hex()
	}
	jsonresp.OK(w, http.StatusOK, "", out)
}
