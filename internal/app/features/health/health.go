// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/csvfeed"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// PingTimeout bounds the database ping of every probe.
const PingTimeout = 5 * time.Second

// Pinger is the part of *mongo.Client the probes use.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// FeedStatuses reports the state of the CSV feeds.
type FeedStatuses func() []csvfeed.Status

// Handler serves the health and probe endpoints.
type Handler struct {
	db     Pinger
	feeds  FeedStatuses
	logger *zap.Logger
}

// NewHandler creates a health Handler. feeds may be nil.
func NewHandler(db Pinger, feeds FeedStatuses, logger *zap.Logger) *Handler {
	return &Handler{db: db, feeds: feeds, logger: logger}
}

// Response is the body of GET /health. Only the database decides the
// status; a feed serving its bundled fallback is reported but still "ok".
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
	Feeds    []csvfeed.Status  `json:"feeds,omitempty"`
}

// Routes serves /health, /health/ready and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the conventional probe paths to the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

func (h *Handler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	return h.db.Ping(ctx, readpref.Primary())
}

// Check reports database reachability and the feed sources.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{Status: "ok", Services: map[string]string{"mongodb": "ok"}}

	if err := h.ping(r.Context()); err != nil {
		h.logger.Warn("health check: mongodb ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Services["mongodb"] = "unavailable"
	}
	if h.feeds != nil {
		resp.Feeds = h.feeds()
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, code, resp)
}

// Ready answers 200 once the database is reachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.OK(w, map[string]string{"status": "ready"})
}

// Live answers 200 while the process is serving.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}
