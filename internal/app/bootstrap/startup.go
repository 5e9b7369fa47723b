// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratablog/internal/app/features/feeds"
	"github.com/dalemusser/stratablog/internal/app/store/oauthstate"
	poststore "github.com/dalemusser/stratablog/internal/app/store/posts"
	substore "github.com/dalemusser/stratablog/internal/app/store/subscriptions"
	userstore "github.com/dalemusser/stratablog/internal/app/store/users"
	viewstore "github.com/dalemusser/stratablog/internal/app/store/views"
	"github.com/dalemusser/stratablog/internal/app/system/csvfeed"
	"github.com/dalemusser/stratablog/internal/app/system/metrics"
	"github.com/dalemusser/stratablog/internal/app/system/notify"
	"github.com/dalemusser/stratablog/internal/app/system/seeding"
	"github.com/dalemusser/stratablog/internal/app/system/tasks"
	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"github.com/dalemusser/stratablog/internal/app/system/viewqueue"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It seeds the configured admin, then builds and starts the long-lived
// services: metrics, the view-count queue, the subscriber notifier, the CSV
// feeds and the background task runner.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	timeouts.Configure(appCfg.Timeouts)

	if err := seeding.SeedAdmin(ctx, userstore.New(db), appCfg.SeedAdminEmail, appCfg.SeedAdminName, logger); err != nil {
		logger.Error("failed to seed admin user", zap.Error(err))
		return err
	}

	svc := deps.Services
	svc.Metrics = metrics.New()

	svc.ViewQueue = viewqueue.New(viewstore.New(db), appCfg.ViewQueueSize, svc.Metrics, logger)
	svc.ViewQueue.Start()

	svc.Notifier = notify.New(
		poststore.New(db, logger),
		substore.New(db),
		deps.Mailer,
		notify.Config{
			SiteURL:       appCfg.SiteURL,
			Concurrency:   appCfg.MailConcurrency,
			RatePerSecond: float64(appCfg.MailRatePerSecond),
		},
		svc.Metrics,
		logger,
	)

	if err := buildFeeds(svc, appCfg, logger); err != nil {
		return err
	}

	startTaskRunner(svc, oauthstate.New(db), appCfg, logger)
	return nil
}

// buildFeeds creates the experiences and quotes feeds with their bundled
// fallbacks.
func buildFeeds(svc *Services, appCfg AppConfig, logger *zap.Logger) error {
	expFallback, err := feeds.FallbackExperiences()
	if err != nil {
		logger.Error("bundled experiences unreadable", zap.Error(err))
		return err
	}
	quoteFallback, err := feeds.FallbackQuotes()
	if err != nil {
		logger.Error("bundled quotes unreadable", zap.Error(err))
		return err
	}

	svc.Experiences = csvfeed.NewFeed(csvfeed.Config[feeds.Experience]{
		Name:     "experiences",
		URL:      appCfg.ExperiencesCSVURL,
		Options:  feeds.ExperienceOptions,
		Decode:   feeds.DecodeExperiences,
		Fallback: expFallback,
		TTL:      appCfg.FeedCacheTTL,
		Timeout:  appCfg.FeedFetchTimeout,
		Metrics:  svc.Metrics,
		Logger:   logger,
	})
	svc.Quotes = csvfeed.NewFeed(csvfeed.Config[feeds.Quote]{
		Name:     "quotes",
		URL:      appCfg.QuotesCSVURL,
		Options:  feeds.QuoteOptions,
		Decode:   feeds.DecodeQuotes,
		Fallback: quoteFallback,
		TTL:      appCfg.FeedCacheTTL,
		Timeout:  appCfg.FeedFetchTimeout,
		Metrics:  svc.Metrics,
		Logger:   logger,
	})

	logger.Info("feeds configured",
		zap.Bool("experiences_remote", appCfg.ExperiencesCSVURL != ""),
		zap.Bool("quotes_remote", appCfg.QuotesCSVURL != ""))
	return nil
}

// startTaskRunner registers the background jobs and starts them.
func startTaskRunner(svc *Services, states *oauthstate.Store, appCfg AppConfig, logger *zap.Logger) {
	svc.Runner = tasks.New(logger, svc.Metrics)
	svc.Runner.Register(tasks.FeedRefreshJob(appCfg.FeedRefreshInterval, logger, svc.Experiences, svc.Quotes))
	svc.Runner.Register(tasks.OAuthStateCleanupJob(states, logger))
	svc.Runner.Start()
}
