// Package metrics holds the Prometheus collectors exported on /metrics.
//
// A Metrics value owns its registry so tests can build isolated instances.
// Every method is safe on a nil receiver, which lets components run without
// metrics wired in.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stratablog"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics is the set of application collectors.
type Metrics struct {
	reg *prometheus.Registry

	viewsEmitted     prometheus.Counter
	viewsDropped     prometheus.Counter
	viewIncrFailures prometheus.Counter
	emailsSent       *prometheus.CounterVec
	feedFetches      *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		viewsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_views_emitted_total",
			Help:      "Post view increments accepted into the view queue.",
		}),
		viewsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_views_dropped_total",
			Help:      "Post view increments dropped because the view queue was full.",
		}),
		viewIncrFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_view_increment_failures_total",
			Help:      "Post view increments that failed to reach the database.",
		}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Notification emails attempted, by result.",
		}, []string{"result"}),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Remote CSV feed fetches, by feed and result.",
		}, []string{"feed", "result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs, by job and result.",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job run time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.viewsEmitted,
		m.viewsDropped,
		m.viewIncrFailures,
		m.emailsSent,
		m.feedFetches,
		m.jobRuns,
		m.jobDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// ViewEmitted counts a view accepted into the queue.
func (m *Metrics) ViewEmitted() {
	if m != nil {
		m.viewsEmitted.Inc()
	}
}

// ViewDropped counts a view dropped on a full queue.
func (m *Metrics) ViewDropped() {
	if m != nil {
		m.viewsDropped.Inc()
	}
}

// ViewIncrementFailed counts a view the worker could not persist.
func (m *Metrics) ViewIncrementFailed() {
	if m != nil {
		m.viewIncrFailures.Inc()
	}
}

// EmailSent counts one notification email attempt.
func (m *Metrics) EmailSent(ok bool) {
	if m != nil {
		m.emailsSent.WithLabelValues(result(ok)).Inc()
	}
}

// FeedFetched counts one remote fetch of feed.
func (m *Metrics) FeedFetched(feed string, ok bool) {
	if m != nil {
		m.feedFetches.WithLabelValues(feed, result(ok)).Inc()
	}
}

// JobRan counts and times one background job run.
func (m *Metrics) JobRan(job string, ok bool, d time.Duration) {
	if m != nil {
		m.jobRuns.WithLabelValues(job, result(ok)).Inc()
		m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
	}
}
