// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	authgooglefeature "github.com/dalemusser/stratablog/internal/app/features/authgoogle"
	creatorsfeature "github.com/dalemusser/stratablog/internal/app/features/creators"
	errorsfeature "github.com/dalemusser/stratablog/internal/app/features/errors"
	feedsfeature "github.com/dalemusser/stratablog/internal/app/features/feeds"
	healthfeature "github.com/dalemusser/stratablog/internal/app/features/health"
	notificationsfeature "github.com/dalemusser/stratablog/internal/app/features/notifications"
	postsfeature "github.com/dalemusser/stratablog/internal/app/features/posts"
	sessionfeature "github.com/dalemusser/stratablog/internal/app/features/session"
	subscriptionsfeature "github.com/dalemusser/stratablog/internal/app/features/subscriptions"
	creatorstore "github.com/dalemusser/stratablog/internal/app/store/creators"
	"github.com/dalemusser/stratablog/internal/app/store/oauthstate"
	poststore "github.com/dalemusser/stratablog/internal/app/store/posts"
	substore "github.com/dalemusser/stratablog/internal/app/store/subscriptions"
	userstore "github.com/dalemusser/stratablog/internal/app/store/users"
	viewstore "github.com/dalemusser/stratablog/internal/app/store/views"
	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/app/system/authz"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the shared services in deps.Services
// are already running.
//
// Browser callers authenticate with the session cookie and must echo the
// CSRF token from GET /api/csrf on unsafe methods. Server-to-server callers
// present the API key as a Bearer token and skip CSRF.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request, so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger))

	db := deps.MongoDatabase
	svc := deps.Services
	errLog := errorsfeature.NewErrorLogger(logger)
	policy := authz.NewPolicy(appCfg.AdminEmails)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// CORS must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Cookie name is "stratablog_csrf" to avoid collisions with other
	// services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratablog_csrf"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			jsonutil.Forbidden(w, "CSRF token invalid or missing")
		})),
	}
	if origins := trustedOrigins(appCfg.SiteURL, secure); len(origins) > 0 {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins(origins))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	r.Use(func(next http.Handler) http.Handler {
		protected := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if csrfExempt(req, appCfg.APIKey) {
				next.ServeHTTP(w, req)
				return
			}
			protected.ServeHTTP(w, req)
		})
	})

	// ─────────────────────────────────────────────────────────────────────────────
	// API
	// ─────────────────────────────────────────────────────────────────────────────

	posts := poststore.New(db, logger)

	// The notification fan-out is bounded by timeouts.Batch instead of the
	// request timeout every other route gets.
	notifyHandler := notificationsfeature.NewHandler(posts, svc.Notifier, policy, appCfg.APIKey, errLog, logger)
	r.Mount("/api/notifications", notificationsfeature.Routes(notifyHandler))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))

		var covers postsfeature.CoverStorage
		if deps.FileStorage != nil {
			covers = deps.FileStorage
		}
		postsHandler := postsfeature.NewHandler(
			posts,
			viewstore.New(db),
			svc.ViewQueue,
			covers,
			svc.Notifier,
			policy,
			errLog,
			logger,
		)
		r.Mount("/api/posts", postsfeature.Routes(postsHandler, sessionMgr))

		subsHandler := subscriptionsfeature.NewHandler(substore.New(db), posts, policy, errLog, logger)
		r.Mount("/api/blog", subscriptionsfeature.Routes(subsHandler, sessionMgr))

		creatorsHandler := creatorsfeature.NewHandler(creatorstore.New(db), creatorstore.NewMemberships(db), policy, errLog, logger)
		r.Mount("/api/creators", creatorsfeature.Routes(creatorsHandler, sessionMgr))

		feedsHandler := feedsfeature.NewHandler(svc.Experiences, svc.Quotes, policy, logger)
		r.Mount("/api/feeds", feedsfeature.Routes(feedsHandler))

		// GET/DELETE /api/session and GET /api/csrf
		r.Route("/api", func(sr chi.Router) {
			sr.Mount("/", sessionfeature.Routes(sessionfeature.NewHandler(sessionMgr)))
		})

		// Google OAuth (only mount if configured)
		if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != "" {
			googleHandler := authgooglefeature.NewHandler(
				userstore.New(db),
				oauthstate.New(db),
				sessionMgr,
				policy,
				errLog,
				authgooglefeature.Config{
					ClientID:     appCfg.GoogleClientID,
					ClientSecret: appCfg.GoogleClientSecret,
					BaseURL:      appCfg.BaseURL,
					SiteURL:      appCfg.SiteURL,
				},
				logger,
			)
			if deps.Mailer != nil && deps.Mailer.Configured() {
				googleHandler.SetWelcomeMailer(deps.Mailer, appCfg.MailFromName)
			}
			r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
			logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
		}

		// ─────────────────────────────────────────────────────────────────────────────
		// Operations
		// ─────────────────────────────────────────────────────────────────────────────

		healthHandler := healthfeature.NewHandler(deps.MongoClient, feedsHandler.Statuses, logger)
		r.Mount("/health", healthfeature.Routes(healthHandler))
		healthfeature.MountRootEndpoints(r, healthHandler)

		r.Handle("/metrics", svc.Metrics.Handler())

		// Uploaded cover images (local storage only)
		if appCfg.StorageType == "local" || appCfg.StorageType == "" {
			r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
		}
	})

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	return r, nil
}

// trustedOrigins lists the hosts allowed to send unsafe requests besides
// this API's own host: the blog front end always, and the localhost dev
// servers outside production.
func trustedOrigins(siteURL string, secure bool) []string {
	var origins []string
	if u, err := url.Parse(siteURL); err == nil && u.Host != "" {
		origins = append(origins, u.Host)
	}
	if !secure {
		for _, h := range []string{"localhost:8080", "localhost:3000", "127.0.0.1:8080", "127.0.0.1:3000"} {
			if !slices.Contains(origins, h) {
				origins = append(origins, h)
			}
		}
	}
	return origins
}

// csrfExempt reports whether a request skips CSRF validation: the
// unsubscribe link opened from an email, the OAuth callback (guarded by its
// state parameter), anonymous view counting, and callers presenting the
// API key.
func csrfExempt(r *http.Request, apiKey string) bool {
	switch r.URL.Path {
	case "/api/blog/unsubscribe", "/auth/google/callback":
		return true
	}
	if r.Method == http.MethodPost && isViewPath(r.URL.Path) {
		return true
	}
	return auth.HasValidAPIKey(r, apiKey)
}

// isViewPath matches /api/posts/{id}/view.
func isViewPath(p string) bool {
	id, ok := strings.CutPrefix(p, "/api/posts/")
	if !ok {
		return false
	}
	id, ok = strings.CutSuffix(id, "/view")
	return ok && id != "" && !strings.Contains(id, "/")
}
