package feeds

import (
	"net/http"

	"github.com/dalemusser/stratablog/internal/app/system/apicors"
	"github.com/dalemusser/stratablog/internal/app/system/authz"
	"github.com/dalemusser/stratablog/internal/app/system/csvfeed"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the auxiliary feeds.
type Handler struct {
	Experiences *csvfeed.Feed[Experience]
	Quotes      *csvfeed.Feed[Quote]
	policy      *authz.Policy
	logger      *zap.Logger
}

// NewHandler creates a feeds Handler.
func NewHandler(experiences *csvfeed.Feed[Experience], quotes *csvfeed.Feed[Quote], policy *authz.Policy, logger *zap.Logger) *Handler {
	return &Handler{
		Experiences: experiences,
		Quotes:      quotes,
		policy:      policy,
		logger:      logger,
	}
}

// Routes mounts the public feed reads and the admin refresh trigger.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(apicors.ReadOnly(apicors.DefaultMaxAge))
		r.Get("/experiences", h.ListExperiences)
		r.Get("/quotes", h.ListQuotes)
	})
	r.With(h.policy.RequireAdmin).Post("/refresh", h.Refresh)
	return r
}

// ListExperiences serves the experiences feed.
func (h *Handler) ListExperiences(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, h.Experiences.Get(r.Context()))
}

// ListQuotes serves the quotes feed.
func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, h.Quotes.Get(r.Context()))
}

type refreshResponse struct {
	Feeds []csvfeed.Status `json:"feeds"`
}

// Refresh re-fetches every feed. A failed refresh keeps the previous
// value and is reported through the feed's status.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Experiences.Refresh(r.Context()); err != nil {
		h.logger.Warn("experiences refresh failed", zap.Error(err))
	}
	if err := h.Quotes.Refresh(r.Context()); err != nil {
		h.logger.Warn("quotes refresh failed", zap.Error(err))
	}
	jsonutil.OK(w, refreshResponse{Feeds: h.Statuses()})
}

// Statuses reports the status of every feed.
func (h *Handler) Statuses() []csvfeed.Status {
	return []csvfeed.Status{h.Experiences.Status(), h.Quotes.Status()}
}
