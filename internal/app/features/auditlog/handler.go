// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	"github.com/dalemusser/learnhub/internal/app/store/audit"
	"go.uber.org/zap"
)

// Querier reads audit events. *audit.Store satisfies it.
type Querier interface {
	Query(ctx context.Context, f audit.QueryFilter) ([]audit.Event, error)
}

type Handler struct {
	Events Querier
	Log    *zap.Logger
}

// NewHandler constructs the admin audit viewer.
func NewHandler(events Querier, logger *zap.Logger) *Handler {
	return &Handler{Events: events, Log: logger}
}
