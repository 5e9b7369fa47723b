// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown runs after the HTTP server has drained. Background jobs stop
// first so none starts a Mongo operation, then queued view increments are
// flushed while Mongo is still connected, then the client disconnects.
// Every step runs even if an earlier one fails; ctx bounds them all.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	type step struct {
		name string
		run  func(context.Context) error
	}
	var steps []step

	if svc := deps.Services; svc != nil {
		if svc.Runner != nil {
			steps = append(steps, step{"task runner", svc.Runner.Stop})
		}
		if svc.ViewQueue != nil {
			logger.Info("view queue pending at shutdown", zap.Int("pending", svc.ViewQueue.Len()))
			steps = append(steps, step{"view queue", svc.ViewQueue.Stop})
		}
	}
	if deps.MongoClient != nil {
		steps = append(steps, step{"mongo client", deps.MongoClient.Disconnect})
	}

	var errs []error
	for _, s := range steps {
		logger.Info("stopping", zap.String("component", s.name))
		if err := s.run(ctx); err != nil {
			logger.Warn("component did not stop cleanly", zap.String("component", s.name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
