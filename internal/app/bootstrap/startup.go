// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store"
	metricsstore "github.com/dalemusser/learnhub/internal/app/store/metrics"
	userstore "github.com/dalemusser/learnhub/internal/app/store/users"
	"github.com/dalemusser/learnhub/internal/app/system/errreport"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/learnhub/internal/app/system/mailer"
	"github.com/dalemusser/learnhub/internal/app/system/media"
	"github.com/dalemusser/learnhub/internal/app/system/metrics"
	"github.com/dalemusser/learnhub/internal/app/system/normalize"
	"github.com/dalemusser/learnhub/internal/app/system/ratelimit"
	"github.com/dalemusser/learnhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services are the long-lived collaborators created in Startup and used by
// BuildHandler and Shutdown. WAFFLE passes only DBDeps between hooks.
type services struct {
	metrics  *metrics.Metrics
	limiter  *ratelimit.LoginLimiter
	reporter *errreport.Rollbar
	mailer   *mailer.Mailer
	media    media.Uploader
}

var rt *services

const limiterSweepInterval = 5 * time.Minute

// Startup promotes the admin account and builds the shared services.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("timeouts", zap.Any("config", timeouts.Current()))

	if err := ensureAdmin(ctx, userstore.New(deps.MongoDatabase, logger), appCfg.AdminEmail, logger); err != nil {
		return err
	}

	up, err := newUploader(ctx, appCfg)
	if err != nil {
		logger.Error("media storage init failed", zap.Error(err))
		return err
	}

	m := metrics.New()
	m.Registry().MustRegister(metricsstore.NewCollector(deps.MongoDatabase, timeouts.Medium(), logger))

	host, _ := os.Hostname()
	rb := errreport.NewRollbar(appCfg.RollbarToken, coreCfg.Env, host, logger)
	if rb != nil {
		jsonresp.SetReporter(rb)
	}

	lim := ratelimit.NewLoginLimiter(appCfg.LoginRatePerMinute)
	lim.Start(limiterSweepInterval)

	rt = &services{
		metrics:  m,
		limiter:  lim,
		reporter: rb,
		mailer:   mailer.New(newMailSender(appCfg, logger), mailer.Address{Email: appCfg.MailFrom, Name: appCfg.MailFromName}, logger),
		media:    up,
	}
	logger.Info("startup complete",
		zap.String("storage", appCfg.StorageType),
		zap.String("mail", appCfg.MailBackend),
		zap.Bool("google", appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != ""),
		zap.Bool("rollbar", rb != nil))
	return nil
}

// ensureAdmin sets role=admin on the account registered under email. It
// never creates an account; a missing one is logged and skipped.
func ensureAdmin(ctx context.Context, users store.IdentityRepository, email string, logger *zap.Logger) error {
	email = normalize.Email(email)
	if email == "" {
		return nil
	}
	found, err := users.PromoteToAdmin(ctx, email)
	if err != nil {
		logger.Error("admin promotion failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("promote admin: %w", err)
	}
	if !found {
		logger.Warn("admin_email has no account yet; sign up then restart", zap.String("email", email))
		return nil
	}
	logger.Info("admin role ensured", zap.String("email", email))
	return nil
}

func newUploader(ctx context.Context, appCfg AppConfig) (media.Uploader, error) {
	switch appCfg.StorageType {
	case "local":
		return media.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	case "s3":
		return media.NewS3(ctx, appCfg.StorageS3Region, appCfg.StorageS3Bucket, appCfg.StorageS3Prefix, appCfg.StorageS3PublicURL)
	}
	return nil, errors.New("unknown storage_type " + appCfg.StorageType)
}

func newMailSender(appCfg AppConfig, logger *zap.Logger) mailer.Sender {
	switch appCfg.MailBackend {
	case "smtp":
		return mailer.NewSMTP(appCfg.MailSMTPHost, appCfg.MailSMTPPort, appCfg.MailSMTPUser, appCfg.MailSMTPPass)
	case "sendgrid":
		return mailer.NewSendGrid(appCfg.MailSendGridKey)
	}
	return &mailer.LogSender{Log: logger}
}
