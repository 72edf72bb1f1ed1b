// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"net/http"

	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/auditlog"
	"github.com/dalemusser/learnhub/internal/app/system/authz"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/learnhub/internal/app/system/timeouts"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler owns the profile and follow handlers.
type Handler struct {
	Svc   *Service
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler constructs a Handler over svc.
func NewHandler(svc *Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Audit: audit, Log: logger}
}

// request resolves the caller and the {id} param. A malformed id is
// NotFound.
func (h *Handler) request(w http.ResponseWriter, r *http.Request) (models.Actor, primitive.ObjectID, bool) {
	act, ok := authz.Actor(r)
	if !ok {
		jsonresp.Error(w, r, h.Log, apperr.Unauthenticated("not authenticated"))
		return models.Actor{}, primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonresp.Error(w, r, h.Log, apperr.NotFound("User not found"))
		return models.Actor{}, primitive.NilObjectID, false
	}
	return act, id, true
}

func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	act, id, ok := h.request(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "profile")
	defer cancel()

	v, err := h.Svc.Get(ctx, act, id)
	if err != nil {
		jsonresp.Error(w, r, h.Log, err)
		return
	}
	jsonresp.OK(w, http.StatusOK, "", v)
}

func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	h.handleEdge(w, r, true)
}

func (h *Handler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	h.handleEdge(w, r, false)
}

func (h *Handler) handleEdge(w http.ResponseWriter, r *http.Request, follow bool) {
	act, id, ok := h.request(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "follow")
	defer cancel()

	apply, msg := h.Svc.Follow, "Followed"
	if !follow {
		apply, msg = h.Svc.Unfollow, "Unfollowed"
	}
	v, changed, err := apply(ctx, act, id)
	if err != nil {
		jsonresp.Error(w, r, h.Log, err)
		return
	}
	if changed {
		h.Audit.Follow(ctx, r, act.ID, id, follow)
	}
	jsonresp.OK(w, http.StatusOK, msg, v)
}

func (h *Handler) ServeFollowers(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, h.Svc.Followers)
}

func (h *Handler) ServeFollowing(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, h.Svc.Following)
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, id primitive.ObjectID) ([]models.Profile, error)) {
	_, id, ok := h.request(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "follow list")
	defer cancel()

	out, err := list(ctx, id)
	if err != nil {
		jsonresp.Error(w, r, h.Log, err)
		return
	}
	jsonresp.OK(w, http.StatusOK, "", out)
}
