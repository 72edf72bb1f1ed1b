// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/learnhub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// minProdSecret is the shortest jwt_secret accepted when env=prod.
const minProdSecret = 32

// appConfigKeys are read from config files, LEARNHUB_* environment
// variables and --flags, in that order of increasing precedence.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "learnhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 signing secret (at least 32 bytes in prod)"},
	{Name: "token_ttl", Default: "360h", Desc: "Token and cookie lifetime"},
	{Name: "cookie_name", Default: "token", Desc: "Auth cookie name"},
	{Name: "cookie_domain", Default: "", Desc: "Auth cookie domain (blank means current host)"},
	{Name: "auth_check_ban", Default: true, Desc: "Reload the user on each request to enforce bans and deletions"},
	{Name: "require_email_verification", Default: false, Desc: "Refuse password login until the email is verified"},
	{Name: "cors_origins", Default: "http://localhost:5173", Desc: "Comma-separated origins allowed to send credentials"},

	{Name: "storage_type", Default: "local", Desc: "Media backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Directory for local media"},
	{Name: "storage_local_url", Default: "/uploads", Desc: "URL prefix local media is served from"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "learnhub/", Desc: "S3 key prefix"},
	{Name: "storage_s3_public_url", Default: "", Desc: "Public base URL for S3 objects (CDN); blank uses the bucket URL"},

	{Name: "mail_backend", Default: "log", Desc: "Mail delivery: 'log', 'smtp' or 'sendgrid'"},
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_sendgrid_key", Default: "", Desc: "SendGrid API key"},
	{Name: "mail_from", Default: "noreply@learnhub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "LearnHub", Desc: "From display name"},
	{Name: "email_verify_expiry", Default: "10m", Desc: "Verification code lifetime (e.g. 10m, 1h)"},

	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all', 'db', 'log' or 'off'"},
	{Name: "audit_log_course", Default: "all", Desc: "Course event logging: 'all', 'db', 'log' or 'off'"},

	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	{Name: "base_url", Default: "http://localhost:5173", Desc: "Front end origin used for OAuth redirects"},
	{Name: "api_base_url", Default: "http://localhost:8080", Desc: "Public origin of this API (Google redirect_uri is <api_base_url>/auth/google/callback)"},
	{Name: "admin_email", Default: "", Desc: "Email promoted to admin on startup"},
	{Name: "rollbar_token", Default: "", Desc: "Rollbar server token (blank disables reporting)"},
	{Name: "login_rate_per_minute", Default: 10, Desc: "Login attempts allowed per client IP and per email each minute"},
}

// LoadConfig loads WAFFLE core config and the LearnHub keys. Env vars use
// the LEARNHUB_ prefix (LEARNHUB_MONGO_URI, LEARNHUB_JWT_SECRET, ...).
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, v, err := config.LoadWithAppConfig(logger, "LEARNHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(v.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(v.Int("mongo_min_pool_size")),

		JWTSecret:                v.String("jwt_secret"),
		TokenTTL:                 v.Duration("token_ttl", 15*24*time.Hour),
		CookieName:               v.String("cookie_name"),
		CookieDomain:             v.String("cookie_domain"),
		AuthCheckBan:             v.Bool("auth_check_ban"),
		RequireEmailVerification: v.Bool("require_email_verification"),
		CORSOrigins:              splitList(v.String("cors_origins")),

		StorageType:        strings.ToLower(v.String("storage_type")),
		StorageLocalPath:   v.String("storage_local_path"),
		StorageLocalURL:    v.String("storage_local_url"),
		StorageS3Region:    v.String("storage_s3_region"),
		StorageS3Bucket:    v.String("storage_s3_bucket"),
		StorageS3Prefix:    v.String("storage_s3_prefix"),
		StorageS3PublicURL: v.String("storage_s3_public_url"),

		MailBackend:     strings.ToLower(v.String("mail_backend")),
		MailSMTPHost:    v.String("mail_smtp_host"),
		MailSMTPPort:    v.Int("mail_smtp_port"),
		MailSMTPUser:    v.String("mail_smtp_user"),
		MailSMTPPass:    v.String("mail_smtp_pass"),
		MailSendGridKey: v.String("mail_sendgrid_key"),
		MailFrom:        v.String("mail_from"),
		MailFromName:    v.String("mail_from_name"),

		EmailVerifyExpiry: v.Duration("email_verify_expiry", 10*time.Minute),

		AuditLogAuth:   strings.ToLower(v.String("audit_log_auth")),
		AuditLogCourse: strings.ToLower(v.String("audit_log_course")),

		GoogleClientID:     v.String("google_client_id"),
		GoogleClientSecret: v.String("google_client_secret"),

		BaseURL:            strings.TrimRight(v.String("base_url"), "/"),
		APIBaseURL:         strings.TrimRight(v.String("api_base_url"), "/"),
		AdminEmail:         v.String("admin_email"),
		RollbarToken:       v.String("rollbar_token"),
		LoginRatePerMinute: v.Int("login_rate_per_minute"),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig rejects settings that would fail later at connect time or
// silently weaken the deployment. All problems are reported together.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}
	if appCfg.MongoDatabase == "" {
		errs = append(errs, errors.New("mongo_database is required"))
	}

	if appCfg.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if coreCfg != nil && coreCfg.Env == "prod" {
		if len(appCfg.JWTSecret) < minProdSecret || appCfg.JWTSecret == devJWTSecret {
			errs = append(errs, fmt.Errorf("jwt_secret must be a unique value of at least %d bytes in prod", minProdSecret))
		}
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			errs = append(errs, errors.New("storage_local_path is required for local storage"))
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			errs = append(errs, errors.New("s3 storage requires storage_s3_bucket and storage_s3_region"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage_type %q", appCfg.StorageType))
	}

	switch appCfg.MailBackend {
	case "log":
	case "smtp":
		if appCfg.MailSMTPHost == "" {
			errs = append(errs, errors.New("smtp mail requires mail_smtp_host"))
		}
	case "sendgrid":
		if appCfg.MailSendGridKey == "" {
			errs = append(errs, errors.New("sendgrid mail requires mail_sendgrid_key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mail_backend %q", appCfg.MailBackend))
	}

	for key, mode := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_course": appCfg.AuditLogCourse} {
		if !auditlog.ValidMode(mode) {
			errs = append(errs, fmt.Errorf("%s must be all, db, log or off (got %q)", key, mode))
		}
	}

	if appCfg.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if appCfg.LoginRatePerMinute <= 0 {
		errs = append(errs, errors.New("login_rate_per_minute must be positive"))
	}

	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		logger.Warn("google sign-in disabled: set both google_client_id and google_client_secret")
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}
