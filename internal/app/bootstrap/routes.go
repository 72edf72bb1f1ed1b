// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	accountfeature "github.com/dalemusser/learnhub/internal/app/features/account"
	auditfeature "github.com/dalemusser/learnhub/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/learnhub/internal/app/features/authgoogle"
	coursesfeature "github.com/dalemusser/learnhub/internal/app/features/courses"
	healthfeature "github.com/dalemusser/learnhub/internal/app/features/health"
	profilefeature "github.com/dalemusser/learnhub/internal/app/features/profile"
	"github.com/dalemusser/learnhub/internal/app/store/audit"
	coursestore "github.com/dalemusser/learnhub/internal/app/store/courses"
	"github.com/dalemusser/learnhub/internal/app/store/emailverify"
	userstore "github.com/dalemusser/learnhub/internal/app/store/users"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/auditlog"
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler assembles the stores, services and feature routers.
//
// Mount points:
//
//	/course       course catalog, ownership-checked mutations, enrollment
//	/user         signup, login, logout, me, email verification
//	/profile      public profiles and the follow graph
//	/auth/google  Google sign-in (404 when not configured)
//	/audit        audit events, admins only
//	/health       database ping; /metrics Prometheus exposition
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if rt == nil {
		return nil, errors.New("bootstrap: Startup has not run")
	}
	db := deps.MongoDatabase
	secure := coreCfg.Env == "prod"

	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.CookieName, appCfg.CookieDomain, appCfg.TokenTTL, secure, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	if appCfg.AuthCheckBan {
		tokens.SetUserFetcher(userstore.NewFetcher(db))
	}

	users := userstore.New(db, logger)
	courses := coursestore.New(db)
	auditStore := audit.New(db)
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Course: appCfg.AuditLogCourse,
	})

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(rt.metrics.Middleware)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		jsonresp.Error(w, req, logger, apperr.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		jsonresp.JSON(w, http.StatusMethodNotAllowed, jsonresp.Envelope{Message: "Method not allowed"})
	})

	// Health and metrics
	r.Mount("/", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, rt.metrics.Handler(), logger)))

	// Courses
	courseSvc := &coursesfeature.Service{
		Courses: courses,
		Users:   users,
		Media:   rt.media,
		Metrics: rt.metrics,
		Log:     logger,
	}
	r.Mount("/course", coursesfeature.Routes(coursesfeature.NewHandler(courseSvc, auditLog, logger), tokens))

	// Accounts
	accountSvc := &accountfeature.Service{
		Users:               users,
		Codes:               emailverify.New(db, appCfg.EmailVerifyExpiry),
		Mailer:              rt.mailer,
		Media:               rt.media,
		SiteName:            appCfg.MailFromName,
		VerifyExpiry:        appCfg.EmailVerifyExpiry,
		RequireVerification: appCfg.RequireEmailVerification,
		Log:                 logger,
	}
	r.Mount("/user", accountfeature.Routes(&accountfeature.Handler{
		Svc:     accountSvc,
		Tokens:  tokens,
		Limiter: rt.limiter,
		Audit:   auditLog,
		Metrics: rt.metrics,
		Log:     logger,
	}))

	// Profiles and follow graph
	profileSvc := &profilefeature.Service{Users: users}
	r.Mount("/profile", profilefeature.Routes(profilefeature.NewHandler(profileSvc, auditLog, logger), tokens))

	// Google sign-in
	r.Mount("/auth/google", authgooglefeature.Routes(&authgooglefeature.Handler{
		Users:   users,
		Tokens:  tokens,
		States:  authgooglefeature.NewStateStore(appCfg.JWTSecret, secure),
		Audit:   auditLog,
		Metrics: rt.metrics,
		Log:     logger,
		OAuth:   authgooglefeature.NewOAuthConfig(appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.APIBaseURL),
		BaseURL: appCfg.BaseURL,
	}))

	// Admin audit viewer
	r.Mount("/audit", auditfeature.Routes(auditfeature.NewHandler(auditStore, logger), tokens))

	// Locally stored media (thumbnails, course media, profile images)
	if appCfg.StorageType == "local" && appCfg.StorageLocalURL != "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	return r, nil
}
