// Package auth manages cookie sessions for signed-in users and API key
// authentication for machine callers.
//
// The session cookie carries only the user's ID plus a cached copy of their
// identity. When a UserFetcher is installed the identity is reloaded from
// the database on every request, so role changes and disabled accounts take
// effect without waiting for the cookie to expire.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultSessionName is the cookie name used when none is configured.
const DefaultSessionName = "stratablog-session"

// minKeyLen is the shortest signing key accepted in production.
const minKeyLen = 32

// Session value keys.
const (
	keyUserID = "uid"
	keyName   = "name"
	keyEmail  = "email"
	keyRole   = "role"
	keyPhoto  = "photo"
)

// SessionConfigError is returned when session configuration is invalid.
type SessionConfigError struct {
	Message string
}

func (e *SessionConfigError) Error() string {
	return e.Message
}

// UserFetcher loads the current state of a signed-in user. It returns nil
// when the user no longer exists or is disabled, which ends the session.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionUser is the signed-in user carried in the request context.
type SessionUser struct {
	ID       string
	Name     string
	Email    string
	Role     string
	PhotoURL string
}

// UserID returns the user's ID as an ObjectID, or NilObjectID when the ID
// is malformed.
func (u *SessionUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// SessionManager issues, reads and clears the session cookie.
type SessionManager struct {
	store       *sessions.CookieStore
	name        string
	userFetcher UserFetcher
	logger      *zap.Logger
}

// NewSessionManager creates a SessionManager. In secure (production) mode a
// short or placeholder signing key is refused; otherwise it is only logged.
// Secure mode also marks the cookie Secure.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, &SessionConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}
	if weak := len(sessionKey) < minKeyLen || isDefaultKey(sessionKey); weak {
		if secure {
			return nil, &SessionConfigError{
				Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
			}
		}
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(sessionKey)),
			zap.Bool("is_default", isDefaultKey(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		// Lax keeps the cookie on top-level navigations from email links
		// and the OAuth redirect while blocking cross-site POSTs.
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)

	logger.Info("session manager initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// SessionName returns the configured session cookie name.
func (sm *SessionManager) SessionName() string {
	return sm.name
}

// SetUserFetcher installs the fetcher LoadSessionUser refreshes users with.
func (sm *SessionManager) SetUserFetcher(uf UserFetcher) {
	sm.userFetcher = uf
}

type ctxKey struct{}

// CurrentUser returns the signed-in user from the request context.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*SessionUser)
	return u, ok && u != nil
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, u))
}

// WithTestUser injects a SessionUser into the request context for testing.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser is middleware that puts the signed-in user, if any, into
// the request context. A bad cookie is logged and treated as anonymous.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			level, category := classifySessionError(err)
			if ce := sm.logger.Check(level, "unreadable session cookie, continuing anonymously"); ce != nil {
				ce.Write(
					zap.String("category", category),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
			}
		}

		userID := stringValue(sess, keyUserID)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		if sm.userFetcher == nil {
			next.ServeHTTP(w, withUser(r, &SessionUser{
				ID:       userID,
				Name:     stringValue(sess, keyName),
				Email:    stringValue(sess, keyEmail),
				Role:     stringValue(sess, keyRole),
				PhotoURL: stringValue(sess, keyPhoto),
			}))
			return
		}

		u := sm.userFetcher.FetchUser(r.Context(), userID)
		if u == nil {
			sm.logger.Info("session ended: user missing or disabled",
				zap.String("user_id", userID),
				zap.String("path", r.URL.Path))
			clearUser(sess)
			_ = sess.Save(r, w)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn is middleware that answers anonymous callers with a
// JSON 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			jsonutil.Unauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession signs the user in by writing a fresh session cookie.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	// A fresh session, so nothing from an earlier cookie carries over.
	sess, err := sm.store.New(r, sm.name)
	if err != nil && sess == nil {
		return err
	}
	sess.IsNew = true
	sess.Values = map[any]any{
		keyUserID: u.ID,
		keyName:   u.Name,
		keyEmail:  u.Email,
		keyRole:   u.Role,
		keyPhoto:  u.PhotoURL,
	}
	return sess.Save(r, w)
}

// DestroySession signs the user out by expiring the cookie.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil && sess == nil {
		return
	}
	clearUser(sess)
	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
}

func clearUser(sess *sessions.Session) {
	for _, k := range []string{keyUserID, keyName, keyEmail, keyRole, keyPhoto} {
		delete(sess.Values, k)
	}
}

func stringValue(sess *sessions.Session, key string) string {
	if sess == nil {
		return ""
	}
	v, _ := sess.Values[key].(string)
	return v
}

// placeholderKeyFragments mark signing keys copied from examples.
var placeholderKeyFragments = []string{
	"dev-only", "change-me", "changeme", "placeholder", "default",
	"example", "insecure", "test-key", "secret123", "password",
}

// isDefaultKey reports whether key looks like a placeholder.
func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range placeholderKeyFragments {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// classifySessionError picks the log level and a short category for a
// cookie read failure. Expiry is routine; a bad MAC may be tampering.
func classifySessionError(err error) (zapcore.Level, string) {
	var scErr securecookie.Error
	if err == nil || !errors.As(err, &scErr) {
		return zapcore.ErrorLevel, "backend"
	}
	if !scErr.IsDecode() {
		return zapcore.ErrorLevel, "backend"
	}

	msg := strings.ToLower(scErr.Error())
	switch {
	case strings.Contains(msg, "expired timestamp"):
		return zapcore.DebugLevel, "expired"
	case strings.Contains(msg, "not valid") || strings.Contains(msg, "mac"):
		return zapcore.WarnLevel, "mac_invalid"
	default:
		// Decode failures follow a key rotation or a truncated cookie.
		return zapcore.InfoLevel, "decode_failed"
	}
}
