package csvfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults applied by NewFeed.
const (
	DefaultTTL          = 5 * time.Minute
	DefaultFetchTimeout = 30 * time.Second
)

// maxCSVBytes bounds how much of a response body is read.
const maxCSVBytes = 8 << 20

// Source says where the last value served by a feed came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Status describes the health of a feed.
type Status struct {
	Name        string    `json:"name"`
	Configured  bool      `json:"configured"`
	Source      Source    `json:"source"`
	Items       int       `json:"items"`
	LastSuccess time.Time `json:"lastSuccess,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
	LastErrorAt time.Time `json:"lastErrorAt,omitzero"`
}

// Config describes a feed. Name, Decode and Fallback are required.
type Config[T any] struct {
	Name     string
	URL      string // empty means "always serve the fallback"
	Options  Options
	Decode   func([]Row) []T
	Fallback []T

	Cache   Cache[T]      // default: MemoryCache with TTL
	TTL     time.Duration // default: DefaultTTL
	Timeout time.Duration // default: DefaultFetchTimeout
	Client  *http.Client

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Feed serves a remote CSV as []T. Get never fails: when the remote is
// unreachable it serves the last good value, then the fallback.
type Feed[T any] struct {
	name     string
	url      string
	opts     Options
	decode   func([]Row) []T
	fallback []T
	cache    Cache[T]
	timeout  time.Duration
	client   *http.Client
	metrics  *metrics.Metrics
	log      *zap.Logger

	group singleflight.Group

	mu     sync.Mutex
	status Status
}

// NewFeed builds a feed from cfg, filling in defaults.
func NewFeed[T any](cfg Config[T]) *Feed[T] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache[T](cfg.TTL)
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Feed[T]{
		name:     cfg.Name,
		url:      cfg.URL,
		opts:     cfg.Options,
		decode:   cfg.Decode,
		fallback: cfg.Fallback,
		cache:    cfg.Cache,
		timeout:  cfg.Timeout,
		client:   cfg.Client,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		status: Status{
			Name:       cfg.Name,
			Configured: cfg.URL != "",
			Source:     SourceFallback,
			Items:      len(cfg.Fallback),
		},
	}
}

// Name returns the feed name.
func (f *Feed[T]) Name() string { return f.name }

// Get returns the feed's items. A fresh cache answers without a network
// call; otherwise concurrent callers share one fetch.
func (f *Feed[T]) Get(ctx context.Context) []T {
	if !f.cache.IsExpired() {
		if items, ok := f.cache.Get(); ok {
			f.served(SourceCache, len(items))
			return items
		}
	}

	if f.url != "" {
		items, err := f.load(ctx)
		if err == nil {
			return items
		}
		f.log.Warn("feed fetch failed, serving fallback",
			zap.String("feed", f.name), zap.Error(err))
	}

	if items, ok := f.cache.Get(); ok {
		f.served(SourceCache, len(items))
		return items
	}
	f.served(SourceFallback, len(f.fallback))
	return f.fallback
}

// Refresh fetches the remote now, bypassing the cache. The cache is only
// replaced on success.
func (f *Feed[T]) Refresh(ctx context.Context) error {
	if f.url == "" {
		return nil
	}
	_, err := f.load(ctx)
	return err
}

// Status returns a snapshot of the feed's health.
func (f *Feed[T]) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// load runs one fetch per feed at a time. The fetch is detached from the
// caller's cancellation so that one departing caller cannot fail the
// others sharing it.
func (f *Feed[T]) load(ctx context.Context) ([]T, error) {
	ch := f.group.DoChan(f.name, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		return f.fetch(fctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]T), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Feed[T]) fetch(ctx context.Context) ([]T, error) {
	items, err := f.fetchRemote(ctx)
	f.metrics.FeedFetched(f.name, err == nil)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.status.LastError = err.Error()
		f.status.LastErrorAt = time.Now().UTC()
		return nil, err
	}
	f.cache.Set(items)
	f.status.Source = SourceRemote
	f.status.Items = len(items)
	f.status.LastSuccess = time.Now().UTC()
	f.status.LastError = ""
	return items, nil
}

func (f *Feed[T]) fetchRemote(ctx context.Context) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed %s: build request: %w", f.name, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", f.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed %s: unexpected status %s", f.name, resp.Status)
	}

	rows, err := Parse(io.LimitReader(resp.Body, maxCSVBytes), f.opts)
	if err != nil {
		return nil, fmt.Errorf("feed %s: parse: %w", f.name, err)
	}
	return f.decode(rows), nil
}

func (f *Feed[T]) served(src Source, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.Source = src
	f.status.Items = n
}
