// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
)

// AppConfig is the blog service's own configuration, loaded by LoadConfig
// next to waffle's CoreConfig (ports, TLS, logging, CORS, body limits).
type AppConfig struct {
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Signing keys must be 32+ random characters in prod.
	SessionKey    string
	SessionName   string
	SessionDomain string // blank means the current host
	SessionMaxAge time.Duration

	CSRFKey string

	// Bearer key accepted from server-to-server callers. Empty disables it.
	APIKey string

	// Cover images: "local" serves StorageLocalPath under StorageLocalURL,
	// "s3" stores in the bucket behind CloudFront.
	StorageType      string
	StorageLocalPath string
	StorageLocalURL  string

	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageCFURL       string
	StorageCFKeyPairID string
	StorageCFKeyPath   string

	// Blank MailSMTPHost disables email.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Limits of one subscriber fan-out.
	MailRatePerSecond int
	MailConcurrency   int

	BaseURL string // this API, for the OAuth redirect
	SiteURL string // the blog front end, for email links

	// Google sign-in is mounted only when both are set.
	GoogleClientID     string
	GoogleClientSecret string

	AdminEmails    []string // always treated as admins
	SeedAdminEmail string
	SeedAdminName  string

	// Published sheet CSVs; blank serves the bundled copy.
	ExperiencesCSVURL   string
	QuotesCSVURL        string
	FeedCacheTTL        time.Duration
	FeedFetchTimeout    time.Duration
	FeedRefreshInterval time.Duration // 0 disables the refresh job

	ViewQueueSize int // views beyond this backlog are dropped

	Timeouts timeouts.Config // zero fields keep the defaults
}
