// Package session exposes the signed-in user and the CSRF token to the
// front end.
package session

import (
	"net/http"

	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/app/system/authz"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"github.com/gorilla/csrf"
)

// Handler serves /api/session and /api/csrf.
type Handler struct {
	sessionMgr *auth.SessionManager
}

// NewHandler creates a session Handler.
func NewHandler(sessionMgr *auth.SessionManager) *Handler {
	return &Handler{sessionMgr: sessionMgr}
}

// Routes mounts the session routes under /api.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/session", h.current)
	r.Delete("/session", h.signOut)
	r.Get("/csrf", h.token)
	return r
}

// UserResponse is the wire form of the signed-in user.
type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	PhotoURL string `json:"photoUrl,omitempty"`

	// CanPublish is true for authors and admins.
	CanPublish bool `json:"canPublish"`
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}
	jsonutil.OK(w, map[string]UserResponse{"user": {
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		PhotoURL: u.PhotoURL,

		CanPublish: authz.HasRole(r, models.RoleAuthor, models.RoleAdmin),
	}})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	h.sessionMgr.DestroySession(w, r)
	jsonutil.NoContent(w)
}

// token returns the CSRF token for this request. Outside csrf.Protect the
// token is empty.
func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"token": csrf.Token(r)})
}
