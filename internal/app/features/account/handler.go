// internal/app/features/account/handler.go
package account

import (
	"net/http"

	"github.com/dalemusser/learnhub/internal/app/store/audit"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/auditlog"
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/learnhub/internal/app/system/limits"
	"github.com/dalemusser/learnhub/internal/app/system/media"
	"github.com/dalemusser/learnhub/internal/app/system/metrics"
	"github.com/dalemusser/learnhub/internal/app/system/ratelimit"
	"github.com/dalemusser/learnhub/internal/app/system/timeouts"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Svc     *Service
	Tokens  *auth.TokenManager
	Limiter *ratelimit.LoginLimiter
	Audit   *auditlog.Logger
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// Session is the payload of signup and login. Token repeats the cookie
// value for clients that send Authorization: Bearer.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	jsonresp.Error(w, r, h.Log, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	return jsonresp.Decode(r, v)
}

func readSignup(w http.ResponseWriter, r *http.Request) (SignupInput, error) {
	if !media.IsMultipart(r) {
		var in SignupInput
		err := decodeJSON(w, r, &in)
		return in, err
	}
	form, err := media.ParseForm(w, r, media.FieldSpec{Name: "profileImage", MaxFiles: 1})
	if err != nil {
		return SignupInput{}, err
	}
	return SignupInput{
		Name:         form.Value("name"),
		Email:        form.Value("email"),
		Password:     form.Values["password"],
		Role:         form.Value("role"),
		Bio:          form.Value("bio"),
		ProfileImage: form.First("profileImage"),
	}, nil
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	in, err := readSignup(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upload(), h.Log, "signup")
	defer cancel()

	u, codeSent, err := h.Svc.Signup(ctx, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.Signup(ctx, r, u.ID, string(u.Role), models.AuthPassword)
	if codeSent {
		h.Audit.VerificationCodeSent(ctx, r, u.ID, u.Email)
	}

	token, err := h.Tokens.SignIn(w, u.ID.Hex(), u.Role)
	if err != nil {
		h.fail(w, r, apperr.Upstream("issue token", err))
		return
	}
	jsonresp.OK(w, http.StatusCreated, "User registered successfully", Session{User: u, Token: token})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, in.Email); !ok {
			h.Audit.LoginFailed(ctx, r, nil, audit.EventLoginFailedRateLimit, "rate limited", in.Email)
			h.Metrics.Login(models.AuthPassword, metrics.ResultDenied)
			h.fail(w, r, apperr.RateLimited(reason))
			return
		}
	}

	u, failEvent, err := h.Svc.Login(ctx, in)
	if err != nil {
		if failEvent != "" {
			var uid *primitive.ObjectID
			if !u.ID.IsZero() {
				uid = &u.ID
			}
			h.Audit.LoginFailed(ctx, r, uid, failEvent, err.Error(), in.Email)
			h.Metrics.Login(models.AuthPassword, metrics.ResultDenied)
		} else {
			h.Metrics.Login(models.AuthPassword, metrics.ResultInvalid)
		}
		h.fail(w, r, err)
		return
	}

	token, err := h.Tokens.SignIn(w, u.ID.Hex(), u.Role)
	if err != nil {
		h.Metrics.Login(models.AuthPassword, metrics.ResultError)
		h.fail(w, r, apperr.Upstream("issue token", err))
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(u.Email)
	}
	h.Audit.LoginSuccess(ctx, r, u.ID, models.AuthPassword)
	h.Metrics.Login(models.AuthPassword, metrics.ResultOK)
	jsonresp.OK(w, http.StatusOK, "Login successful", Session{User: u, Token: token})
}

// HandleLogout clears the cookie. It succeeds with or without a session.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if claims := h.Tokens.Identify(r); claims != nil {
		h.Audit.Logout(r.Context(), r, claims.UserID)
	}
	h.Tokens.SignOut(w)
	jsonresp.OK(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		h.fail(w, r, apperr.Unauthenticated("not authenticated"))
		return
	}
	id, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		h.fail(w, r, apperr.Unauthenticated("not authenticated"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "me")
	defer cancel()

	u, err := h.Svc.Me(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonresp.OK(w, http.StatusOK, "", u)
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var in VerifyInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "verify email")
	defer cancel()

	u, err := h.Svc.Verify(ctx, in)
	if err != nil {
		if !u.ID.IsZero() {
			h.Audit.VerificationCodeFailed(ctx, r, u.ID, err.Error())
		}
		h.fail(w, r, err)
		return
	}
	h.Audit.EmailVerified(ctx, r, u.ID)
	jsonresp.OK(w, http.StatusOK, "Email verified successfully", u)
}

func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var in ResendInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "resend otp")
	defer cancel()

	u, err := h.Svc.ResendOTP(ctx, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if u != nil {
		h.Audit.VerificationCodeSent(ctx, r, u.ID, u.Email)
	}
	jsonresp.OK(w, http.StatusOK, "If the account needs verification, a new code has been sent", nil)
}
