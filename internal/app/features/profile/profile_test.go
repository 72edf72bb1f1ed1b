package profile_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/learnhub/internal/app/features/profile"
	"github.com/dalemusser/learnhub/internal/app/store/memstore"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/dalemusser/learnhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-secret-at-least-32-characters-long"

type env struct {
	users  *memstore.Users
	svc    *profile.Service
	tm     *auth.TokenManager
	router http.Handler
	ada    models.User
	grace  models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{users: memstore.NewUsers()}
	e.svc = &profile.Service{Users: e.users}
	tm, err := auth.NewTokenManager(testSecret, "token", "", 0, false, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	e.tm = tm
	r := chi.NewRouter()
	r.Mount("/profile", profile.Routes(profile.NewHandler(e.svc, nil, zap.NewNop()), tm))
	e.router = r

	e.ada = e.users.Put(models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleInstructor, Bio: "Engines"})
	e.grace = e.users.Put(models.User{Name: "Grace", Email: "grace@example.com", Role: models.RoleStudent})
	return e
}

func actor(u models.User) models.Actor { return models.Actor{ID: u.ID, Role: u.Role} }

func (e *env) do(t *testing.T, method, path string, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if as != nil {
		tok, err := e.tm.Issue(as.ID.Hex(), as.Role)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestFollow_UpdatesBothCounters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	v, changed, err := e.svc.Follow(ctx, actor(e.grace), e.ada.ID)
	if err != nil || !changed {
		t.Fatalf("Follow = %v, %v", changed, err)
	}
	if !v.IsFollowing || v.FollowersCount != 1 {
		t.Errorf("view = %+v", v)
	}
	g, _ := e.users.GetByID(ctx, e.grace.ID)
	if g.FollowingCount != 1 {
		t.Errorf("following count = %d", g.FollowingCount)
	}

	_, changed, err = e.svc.Follow(ctx, actor(e.grace), e.ada.ID)
	if err != nil || changed {
		t.Errorf("repeat Follow = %v, %v; want no-op", changed, err)
	}
	a, _ := e.users.GetByID(ctx, e.ada.ID)
	if a.FollowersCount != 1 {
		t.Errorf("followers count after repeat = %d", a.FollowersCount)
	}

	v, changed, err = e.svc.Unfollow(ctx, actor(e.grace), e.ada.ID)
	if err != nil || !changed || v.IsFollowing || v.FollowersCount != 0 {
		t.Errorf("Unfollow = %+v, %v, %v", v, changed, err)
	}
	if _, changed, _ = e.svc.Unfollow(ctx, actor(e.grace), e.ada.ID); changed {
		t.Error("repeat Unfollow changed the graph")
	}
}

func TestFollow_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, _, err := e.svc.Follow(ctx, actor(e.ada), e.ada.ID); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("self follow err = %v", err)
	}
	if _, _, err := e.svc.Follow(ctx, actor(e.ada), primitive.NewObjectID()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown target err = %v", err)
	}
	if e.users.Writes != 0 {
		t.Errorf("writes = %d", e.users.Writes)
	}
}

func TestFollowersAndFollowing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	linus := e.users.Put(models.User{Name: "Linus", Email: "linus@example.com", Role: models.RoleStudent})

	for _, u := range []models.User{e.grace, linus} {
		if _, _, err := e.svc.Follow(ctx, actor(u), e.ada.ID); err != nil {
			t.Fatal(err)
		}
	}

	followers, err := e.svc.Followers(ctx, e.ada.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(followers) != 2 || followers[0].Name != "Grace" || followers[1].Name != "Linus" {
		t.Errorf("followers = %+v", followers)
	}
	following, err := e.svc.Following(ctx, e.grace.ID)
	if err != nil || len(following) != 1 || following[0].ID != e.ada.ID {
		t.Errorf("following = %+v, %v", following, err)
	}
	if none, _ := e.svc.Following(ctx, e.ada.ID); none == nil || len(none) != 0 {
		t.Errorf("empty following = %#v, want empty non-nil", none)
	}
}

func TestRoutes(t *testing.T) {
	e := newEnv(t)
	adaPath := "/profile/user/" + e.ada.ID.Hex()

	testutil.AssertStatus(t, e.do(t, http.MethodGet, adaPath, nil), http.StatusUnauthorized)
	testutil.AssertStatus(t, e.do(t, http.MethodGet, "/profile/user/nothex", &e.grace), http.StatusNotFound)
	testutil.AssertStatus(t, e.do(t, http.MethodGet, "/profile/user/"+primitive.NewObjectID().Hex(), &e.grace), http.StatusNotFound)

	rec := e.do(t, http.MethodGet, adaPath, &e.grace)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var v profile.View
	testutil.DecodeData(t, testutil.DecodeEnvelope(t, rec), &v)
	if v.Name != "Ada" || v.Bio != "Engines" || v.IsSelf || v.IsFollowing {
		t.Errorf("view = %+v", v)
	}

	testutil.AssertStatus(t, e.do(t, http.MethodPost, adaPath+"/follow", &e.grace), http.StatusOK)
	testutil.AssertStatus(t, e.do(t, http.MethodPost, adaPath+"/follow", &e.ada), http.StatusBadRequest)

	rec = e.do(t, http.MethodGet, adaPath+"/followers", &e.ada)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var list []models.Profile
	testutil.DecodeData(t, testutil.DecodeEnvelope(t, rec), &list)
	if len(list) != 1 || list[0].ID != e.grace.ID {
		t.Errorf("followers = %+v", list)
	}

	testutil.AssertStatus(t, e.do(t, http.MethodDelete, adaPath+"/follow", &e.grace), http.StatusOK)
	a, _ := e.users.GetByID(context.Background(), e.ada.ID)
	if a.FollowersCount != 0 {
		t.Errorf("followers count = %d", a.FollowersCount)
	}
}
