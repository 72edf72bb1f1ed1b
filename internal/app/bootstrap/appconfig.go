// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds LearnHub's app-level configuration. WAFFLE's CoreConfig
// covers ports, TLS, logging and request limits; everything specific to
// this service lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Tokens and cookies
	JWTSecret    string
	TokenTTL     time.Duration
	CookieName   string // default "token"
	CookieDomain string // blank means current host
	AuthCheckBan bool   // re-read the user on every authenticated request

	RequireEmailVerification bool
	CORSOrigins              []string

	// Media storage: "local" or "s3"
	StorageType        string
	StorageLocalPath   string
	StorageLocalURL    string
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3PublicURL string

	// Mail: "log", "smtp" or "sendgrid"
	MailBackend     string
	MailSMTPHost    string
	MailSMTPPort    int
	MailSMTPUser    string
	MailSMTPPass    string
	MailSendGridKey string
	MailFrom        string
	MailFromName    string

	EmailVerifyExpiry time.Duration

	// Audit destinations: all | db | log | off
	AuditLogAuth   string
	AuditLogCourse string

	// Google sign-in; disabled when either is blank
	GoogleClientID     string
	GoogleClientSecret string

	BaseURL            string // front end origin the OAuth callback redirects to
	APIBaseURL         string // public origin of this service, used for the OAuth redirect_uri
	AdminEmail         string // promoted to admin at startup
	RollbarToken       string
	LoginRatePerMinute int
}
