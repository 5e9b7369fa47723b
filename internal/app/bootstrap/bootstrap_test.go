package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/tasks"
	"github.com/dalemusser/stratablog/internal/app/system/viewqueue"
	"go.uber.org/zap"
)

func validConfig() AppConfig {
	return AppConfig{
		MailRatePerSecond:   10,
		MailConcurrency:     4,
		ViewQueueSize:       1024,
		FeedCacheTTL:        5 * time.Minute,
		FeedFetchTimeout:    30 * time.Second,
		FeedRefreshInterval: 15 * time.Minute,
		SiteURL:             "http://localhost:3000",
		StorageType:         "local",
	}
}

func TestValidateAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "refresh disabled", mutate: func(c *AppConfig) { c.FeedRefreshInterval = 0 }},
		{name: "remote feeds", mutate: func(c *AppConfig) {
			c.ExperiencesCSVURL = "https://docs.example.com/exp.csv"
			c.QuotesCSVURL = "https://docs.example.com/quotes.csv"
		}},
		{name: "zero rate", mutate: func(c *AppConfig) { c.MailRatePerSecond = 0 }, wantErr: "mail_rate_per_second"},
		{name: "zero concurrency", mutate: func(c *AppConfig) { c.MailConcurrency = 0 }, wantErr: "mail_concurrency"},
		{name: "zero queue", mutate: func(c *AppConfig) { c.ViewQueueSize = 0 }, wantErr: "view_queue_size"},
		{name: "zero ttl", mutate: func(c *AppConfig) { c.FeedCacheTTL = 0 }, wantErr: "feed_cache_ttl"},
		{name: "negative refresh", mutate: func(c *AppConfig) { c.FeedRefreshInterval = -time.Second }, wantErr: "feed_refresh_interval"},
		{name: "bad feed url", mutate: func(c *AppConfig) { c.QuotesCSVURL = "ftp://x/q.csv" }, wantErr: "quotes_csv_url"},
		{name: "bad site url", mutate: func(c *AppConfig) { c.SiteURL = "blog" }, wantErr: "site_url"},
		{name: "unknown storage", mutate: func(c *AppConfig) { c.StorageType = "gcs" }, wantErr: "storage_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validateAppConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateAppConfig() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validateAppConfig() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAppConfig_ReportsAll(t *testing.T) {
	cfg := validConfig()
	cfg.MailConcurrency = 0
	cfg.SiteURL = ""

	err := validateAppConfig(cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, key := range []string{"mail_concurrency", "site_url"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestCSRFExempt(t *testing.T) {
	const key = "secret-key"

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		apiKey string
		want   bool
	}{
		{name: "unsubscribe", method: http.MethodPost, path: "/api/blog/unsubscribe", apiKey: key, want: true},
		{name: "oauth callback", method: http.MethodGet, path: "/auth/google/callback", apiKey: key, want: true},
		{name: "api key", method: http.MethodPost, path: "/api/notifications/send", auth: "Bearer " + key, apiKey: key, want: true},
		{name: "wrong api key", method: http.MethodPost, path: "/api/notifications/send", auth: "Bearer nope", apiKey: key},
		{name: "no key configured", method: http.MethodPost, path: "/api/posts", auth: "Bearer ", apiKey: ""},
		{name: "subscribe", method: http.MethodPost, path: "/api/blog/subscribe", apiKey: key},
		{name: "create post", method: http.MethodPost, path: "/api/posts", apiKey: key},
		{name: "view", method: http.MethodPost, path: "/api/posts/abc123/view", apiKey: key, want: true},
		{name: "view wrong method", method: http.MethodDelete, path: "/api/posts/abc123/view", apiKey: key},
		{name: "view nested", method: http.MethodPost, path: "/api/posts/a/b/view", apiKey: key},
		{name: "view no id", method: http.MethodPost, path: "/api/posts//view", apiKey: key},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if got := csrfExempt(req, tt.apiKey); got != tt.want {
				t.Errorf("csrfExempt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrustedOrigins(t *testing.T) {
	prod := trustedOrigins("https://blog.example.com", true)
	if !reflect.DeepEqual(prod, []string{"blog.example.com"}) {
		t.Errorf("prod origins = %v, want [blog.example.com]", prod)
	}

	dev := trustedOrigins("http://localhost:3000", false)
	if !slices.Contains(dev, "localhost:3000") || !slices.Contains(dev, "127.0.0.1:8080") {
		t.Errorf("dev origins = %v, want the localhost servers", dev)
	}
	if n := len(dev); n != 4 {
		t.Errorf("dev origins = %v, want no duplicates", dev)
	}

	if got := trustedOrigins("", true); len(got) != 0 {
		t.Errorf("origins without site_url = %v, want none", got)
	}
}

func TestShutdown_NothingStarted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := Shutdown(ctx, nil, AppConfig{}, DBDeps{}, zap.NewNop()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := Shutdown(ctx, nil, AppConfig{}, DBDeps{Services: &Services{}}, zap.NewNop()); err != nil {
		t.Fatalf("Shutdown() with empty services error = %v", err)
	}
}

type countingIncrementer struct {
	mu  sync.Mutex
	ids []string
}

func (c *countingIncrementer) Increment(_ context.Context, postID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, postID)
	return int64(len(c.ids)), nil
}

func TestShutdown_DrainsViewQueue(t *testing.T) {
	views := &countingIncrementer{}
	queue := viewqueue.New(views, 8, nil, zap.NewNop())
	runner := tasks.New(zap.NewNop(), nil)
	runner.Start()

	// Not started: Stop drains what was buffered.
	for _, id := range []string{"a", "b", "c"} {
		if !queue.Emit(id) {
			t.Fatalf("Emit(%q) dropped", id)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	deps := DBDeps{Services: &Services{Runner: runner, ViewQueue: queue}}
	if err := Shutdown(ctx, nil, AppConfig{}, deps, zap.NewNop()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	views.mu.Lock()
	defer views.mu.Unlock()
	if len(views.ids) != 3 {
		t.Errorf("increments after shutdown = %v, want 3", views.ids)
	}
	if queue.Emit("d") {
		t.Error("Emit() after shutdown should drop")
	}
}
