// internal/app/features/authgoogle/authgoogle.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/stratablog/internal/app/features/errors"
	"github.com/dalemusser/stratablog/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/stratablog/internal/app/store/users"
	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/app/system/authz"
	"github.com/dalemusser/stratablog/internal/app/system/mailer"
	"github.com/dalemusser/stratablog/internal/app/system/status"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // this service; the callback lives under it
	SiteURL      string // the blog front end; users land here after sign-in

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// Handler provides Google OAuth handlers.
type Handler struct {
	users       *userstore.Store
	states      *oauthstate.Store
	sessionMgr  *auth.SessionManager
	policy      *authz.Policy
	errLog      *errorsfeature.ErrorLogger
	oauthConfig *oauth2.Config
	userInfoURL string
	siteURL     string
	logger      *zap.Logger

	welcome  mailer.Sender // nil sends no welcome email
	siteName string
}

// NewHandler creates a new Google OAuth Handler.
func NewHandler(
	users *userstore.Store,
	states *oauthstate.Store,
	sessionMgr *auth.SessionManager,
	policy *authz.Policy,
	errLog *errorsfeature.ErrorLogger,
	cfg Config,
	logger *zap.Logger,
) *Handler {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}
	siteURL := strings.TrimRight(cfg.SiteURL, "/")
	if siteURL == "" {
		siteURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Handler{
		users:      users,
		states:     states,
		sessionMgr: sessionMgr,
		policy:     policy,
		errLog:     errLog,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		siteURL:     siteURL,
		logger:      logger,
	}
}

// SetWelcomeMailer enables the welcome email sent on a user's first
// sign-in. siteName appears in its subject and body.
func (h *Handler) SetWelcomeMailer(m mailer.Sender, siteName string) {
	h.welcome = m
	h.siteName = siteName
}

// Routes returns a chi.Router with Google OAuth routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.startAuth)
	r.Get("/callback", h.handleCallback)
	return r
}

// failRedirect sends the browser back to the site's login page with an
// error code.
func (h *Handler) failRedirect(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.siteURL+"/login?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// startAuth initiates the Google OAuth flow.
func (h *Handler) startAuth(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to issue oauth state", err)
		h.failRedirect(w, r, "oauth_error")
		return
	}

	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// handleCallback processes the Google OAuth callback.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errMsg := q.Get("error"); errMsg != "" {
		h.logger.Warn("oauth error from google", zap.String("error", errMsg))
		h.failRedirect(w, r, errMsg)
		return
	}

	if err := h.states.Consume(r.Context(), q.Get("state")); err != nil {
		if errors.Is(err, oauthstate.ErrInvalidState) {
			h.logger.Warn("invalid oauth state", zap.String("ip", clientIP(r)))
			h.failRedirect(w, r, "invalid_state")
		} else {
			h.errLog.Log(r, "failed to check oauth state", err)
			h.failRedirect(w, r, "database_error")
		}
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		h.errLog.Log(r, "failed to exchange code", err)
		h.failRedirect(w, r, "token_exchange_failed")
		return
	}

	info, err := h.getUserInfo(r.Context(), token)
	if err != nil {
		h.errLog.Log(r, "failed to get user info", err)
		h.failRedirect(w, r, "userinfo_failed")
		return
	}

	role := models.RoleReader
	if h.policy.IsAdminEmail(info.Email) {
		role = models.RoleAdmin
	}
	user, created, err := h.users.FindOrCreateGoogle(r.Context(), userstore.GoogleProfile{
		GoogleID: info.ID,
		Email:    info.Email,
		Name:     info.Name,
		PhotoURL: info.Picture,
	}, role)
	if err != nil {
		h.errLog.Log(r, "failed to find or create user", err)
		h.failRedirect(w, r, "database_error")
		return
	}

	if user.Status == status.Disabled {
		h.logger.Info("sign-in refused for disabled user",
			zap.String("user_id", user.ID.Hex()), zap.String("ip", clientIP(r)))
		h.failRedirect(w, r, "account_disabled")
		return
	}

	err = h.sessionMgr.CreateSession(w, r, auth.SessionUser{
		ID:       user.ID.Hex(),
		Name:     user.FullName,
		Email:    user.Email,
		Role:     user.Role,
		PhotoURL: user.PhotoURL,
	})
	if err != nil {
		h.errLog.Log(r, "failed to create session", err)
		h.failRedirect(w, r, "session_error")
		return
	}

	h.logger.Info("user signed in",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", user.Role),
		zap.Bool("new_user", created),
		zap.String("ip", clientIP(r)))

	if created && h.welcome != nil {
		go h.sendWelcome(user)
	}

	http.Redirect(w, r, h.siteURL+"/", http.StatusSeeOther)
}

// sendWelcome greets a new user. Failures are logged and never affect the
// sign-in.
func (h *Handler) sendWelcome(user *models.User) {
	text, html := mailer.WelcomeEmail(mailer.WelcomeEmailData{
		Name:     user.FullName,
		SiteName: h.siteName,
		SiteURL:  h.siteURL + "/",
	})
	err := h.welcome.Send(mailer.Email{
		To:       user.Email,
		Subject:  mailer.WelcomeSubject(h.siteName, user.FullName),
		TextBody: text,
		HTMLBody: html,
	})
	if err != nil {
		h.logger.Warn("welcome email failed",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return
	}
	h.logger.Info("welcome email sent", zap.String("user_id", user.ID.Hex()))
}

// GoogleUserInfo represents user info from Google.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// getUserInfo fetches user info from Google.
func (h *Handler) getUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := h.oauthConfig.Client(ctx, token)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: unexpected status %s", resp.Status)
	}

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}
	if userInfo.Email == "" {
		return nil, fmt.Errorf("userinfo: no email in profile")
	}

	return &userInfo, nil
}

// clientIP is the first X-Forwarded-For hop, else X-Real-IP, else the
// connection's address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
