// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratablog/internal/app/features/feeds"
	"github.com/dalemusser/stratablog/internal/app/system/csvfeed"
	"github.com/dalemusser/stratablog/internal/app/system/mailer"
	"github.com/dalemusser/stratablog/internal/app/system/metrics"
	"github.com/dalemusser/stratablog/internal/app/system/notify"
	"github.com/dalemusser/stratablog/internal/app/system/tasks"
	"github.com/dalemusser/stratablog/internal/app/system/viewqueue"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. The Shutdown
// hook is responsible for closing these connections gracefully when the
// application terminates.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// FileStorage holds uploaded cover images.
	FileStorage storage.Store

	// Mailer sends subscriber notifications.
	Mailer *mailer.Mailer

	// Services is allocated in ConnectDB and filled in by Startup, so the
	// later hooks (which receive DBDeps by value) share one instance.
	Services *Services
}

// Services are the long-lived workers and shared components built at
// startup.
type Services struct {
	Metrics     *metrics.Metrics
	ViewQueue   *viewqueue.Queue
	Notifier    *notify.Service
	Experiences *csvfeed.Feed[feeds.Experience]
	Quotes      *csvfeed.Feed[feeds.Quote]
	Runner      *tasks.Runner
}
