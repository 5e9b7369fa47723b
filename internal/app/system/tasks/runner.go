// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/metrics"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// Job is a periodic background task. It runs once when the runner starts
// and then every Interval. A non-positive Interval leaves the job
// unscheduled; RunOnce still runs it. A positive Timeout bounds each run.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Runner schedules registered jobs on their intervals. A job that panics is
// logged and counted as a failure; its schedule continues.
type Runner struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	jobs    map[string]Job
	order   []string

	wg     conc.WaitGroup
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[string]int
}

// New creates a Runner. m may be nil.
func New(logger *zap.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		logger:  logger,
		metrics: m,
		jobs:    map[string]Job{},
		active:  map[string]int{},
	}
}

// Register adds job. Registering a name twice replaces the earlier job.
// Register must be called before Start.
func (r *Runner) Register(job Job) {
	if _, dup := r.jobs[job.Name]; !dup {
		r.order = append(r.order, job.Name)
	}
	r.jobs[job.Name] = job
}

// Start launches a goroutine per scheduled job.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	var scheduled []string
	for _, name := range r.order {
		job := r.jobs[name]
		if job.Interval <= 0 {
			r.logger.Info("job disabled", zap.String("job", name))
			continue
		}
		scheduled = append(scheduled, name)
		r.wg.Go(func() { r.loop(ctx, job) })
	}
	r.logger.Info("background task runner started", zap.Strings("jobs", scheduled))
}

// Stop cancels every job and waits for them to return. When ctx ends first
// it logs the jobs still running and returns ctx.Err().
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", r.running()))
		return ctx.Err()
	}
}

// RunOnce runs the named job now, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	job, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return r.execute(ctx, job)
}

func (r *Runner) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		err := r.execute(ctx, job)
		switch {
		case ctx.Err() != nil:
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case err != nil:
			r.logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
		}
	}
}

// execute runs one pass of job, converting a panic into an error. Runs cut
// short by shutdown are not recorded.
func (r *Runner) execute(ctx context.Context, job Job) error {
	r.track(job.Name, 1)
	defer r.track(job.Name, -1)

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = job.Run(ctx) })
	if rec := pc.Recovered(); rec != nil {
		err = rec.AsError()
	}
	elapsed := time.Since(start)

	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	r.metrics.JobRan(job.Name, err == nil, elapsed)
	if err == nil {
		r.logger.Debug("job completed", zap.String("job", job.Name), zap.Duration("duration", elapsed))
	}
	return err
}

func (r *Runner) track(name string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[name] += delta; r.active[name] <= 0 {
		delete(r.active, name)
	}
}

func (r *Runner) running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.active))
	for name := range r.active {
		names = append(names, name)
	}
	return names
}
