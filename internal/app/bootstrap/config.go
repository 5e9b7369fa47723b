// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/csvfeed"
	"github.com/dalemusser/stratablog/internal/app/system/inputval"
	"github.com/dalemusser/stratablog/internal/app/system/normalize"
	"github.com/dalemusser/stratablog/internal/app/system/notify"
	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"github.com/dalemusser/stratablog/internal/app/system/viewqueue"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATABLOG"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATABLOG_MONGO_URI, STRATABLOG_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratablog", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratablog-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// API key for server-to-server callers using Bearer token auth
	{Name: "api_key", Default: "", Desc: "API key for notification dispatch (leave empty to disable API key auth)"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@example.com", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Strata Blog", Desc: "From display name"},
	{Name: "mail_rate_per_second", Default: notify.DefaultRatePerSecond, Desc: "Max subscriber emails per second"},
	{Name: "mail_concurrency", Default: notify.DefaultConcurrency, Desc: "Max concurrent subscriber email sends"},

	// Site addresses
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public URL of this service (OAuth redirect)"},
	{Name: "site_url", Default: "http://localhost:3000", Desc: "Public URL of the blog (email links, post-login redirect)"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Administrators
	{Name: "admin_emails", Default: "", Desc: "Comma-separated emails with admin rights"},
	{Name: "seed_admin_email", Default: "", Desc: "Email of admin user to create on startup"},
	{Name: "seed_admin_name", Default: "Admin", Desc: "Name of admin user to create on startup"},

	// CSV feeds
	{Name: "experiences_csv_url", Default: "", Desc: "CSV export URL of the experiences sheet"},
	{Name: "quotes_csv_url", Default: "", Desc: "CSV export URL of the quotes sheet"},
	{Name: "feed_cache_ttl", Default: "5m", Desc: "How long fetched feeds are cached"},
	{Name: "feed_fetch_timeout", Default: "30s", Desc: "Timeout of one CSV fetch"},
	{Name: "feed_refresh_interval", Default: "15m", Desc: "Background feed refresh period ('0s' disables)"},

	// View counting
	{Name: "view_queue_size", Default: viewqueue.DefaultSize, Desc: "Buffered view increments before views are dropped"},

	// Handler deadlines
	{Name: "timeout_short", Default: "5s", Desc: "Deadline of single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline of list queries"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline of cover uploads"},
	{Name: "timeout_batch", Default: "2m", Desc: "Deadline of one subscriber notification fan-out"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATABLOG_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		CSRFKey: appValues.String("csrf_key"),
		APIKey:  appValues.String("api_key"),

		// File storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		// Email/SMTP
		MailSMTPHost:      appValues.String("mail_smtp_host"),
		MailSMTPPort:      appValues.Int("mail_smtp_port"),
		MailSMTPUser:      appValues.String("mail_smtp_user"),
		MailSMTPPass:      appValues.String("mail_smtp_pass"),
		MailFrom:          appValues.String("mail_from"),
		MailFromName:      appValues.String("mail_from_name"),
		MailRatePerSecond: appValues.Int("mail_rate_per_second"),
		MailConcurrency:   appValues.Int("mail_concurrency"),

		// Site
		BaseURL: appValues.String("base_url"),
		SiteURL: appValues.String("site_url"),

		// Google OAuth
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		// Administrators
		AdminEmails:    normalize.EmailList(appValues.String("admin_emails")),
		SeedAdminEmail: appValues.String("seed_admin_email"),
		SeedAdminName:  appValues.String("seed_admin_name"),

		// Feeds
		ExperiencesCSVURL:   appValues.String("experiences_csv_url"),
		QuotesCSVURL:        appValues.String("quotes_csv_url"),
		FeedCacheTTL:        appValues.Duration("feed_cache_ttl", csvfeed.DefaultTTL),
		FeedFetchTimeout:    appValues.Duration("feed_fetch_timeout", csvfeed.DefaultFetchTimeout),
		FeedRefreshInterval: appValues.Duration("feed_refresh_interval", 15*time.Minute),

		ViewQueueSize: appValues.Int("view_queue_size"),

		Timeouts: timeouts.Config{
			Short:  appValues.Duration("timeout_short", timeouts.DefaultShort),
			Medium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
			Long:   appValues.Duration("timeout_long", timeouts.DefaultLong),
			Batch:  appValues.Duration("timeout_batch", timeouts.DefaultBatch),
		},
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if err := validateAppConfig(appCfg); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}

// validateAppConfig checks the knobs that must be positive and the URLs
// that must be http(s). All problems are reported together.
func validateAppConfig(appCfg AppConfig) error {
	var errs []error

	positive := []struct {
		key string
		n   int64
	}{
		{"mail_rate_per_second", int64(appCfg.MailRatePerSecond)},
		{"mail_concurrency", int64(appCfg.MailConcurrency)},
		{"view_queue_size", int64(appCfg.ViewQueueSize)},
		{"feed_cache_ttl", int64(appCfg.FeedCacheTTL)},
		{"feed_fetch_timeout", int64(appCfg.FeedFetchTimeout)},
	}
	for _, p := range positive {
		if p.n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.key))
		}
	}
	if appCfg.FeedRefreshInterval < 0 {
		errs = append(errs, errors.New("feed_refresh_interval must not be negative"))
	}

	optionalURLs := map[string]string{
		"experiences_csv_url": appCfg.ExperiencesCSVURL,
		"quotes_csv_url":      appCfg.QuotesCSVURL,
	}
	for key, u := range optionalURLs {
		if u != "" && !inputval.IsValidHTTPURL(u) {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL", key))
		}
	}
	if !inputval.IsValidHTTPURL(appCfg.SiteURL) {
		errs = append(errs, errors.New("site_url must be an http(s) URL"))
	}

	switch appCfg.StorageType {
	case "", "local", "s3":
	default:
		errs = append(errs, fmt.Errorf("unknown storage_type %q", appCfg.StorageType))
	}

	return errors.Join(errs...)
}
