// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Refresher is a feed that can be re-fetched on demand.
type Refresher interface {
	Name() string
	Refresh(ctx context.Context) error
}

// ExpiredDeleter removes expired records and reports how many went.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// FeedRefreshJob re-fetches every feed on interval. One failing feed does
// not stop the others; the joined error is reported once all have run.
func FeedRefreshJob(interval time.Duration, logger *zap.Logger, feeds ...Refresher) Job {
	return Job{
		Name:     "feed-refresh",
		Interval: interval,
		Timeout:  timeouts.Batch(),
		Run: func(ctx context.Context) error {
			var errs []error
			for _, f := range feeds {
				if err := f.Refresh(ctx); err != nil {
					logger.Warn("feed refresh failed",
						zap.String("feed", f.Name()),
						zap.Error(err))
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

// OAuthStateCleanupJob removes expired OAuth state tokens. The TTL index
// normally does this; the job covers servers where TTL monitors are off.
func OAuthStateCleanupJob(states ExpiredDeleter, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Timeout:  timeouts.Medium(),
		Run: func(ctx context.Context) error {
			deleted, err := states.DeleteExpired(ctx)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("cleaned up expired oauth states",
					zap.Int64("deleted", deleted))
			}
			return nil
		},
	}
}
