// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"slices"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/dalemusser/stratablog/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the authenticated caller as seen by authorization checks.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// FromRequest returns the identity of the signed-in user, or nil.
func FromRequest(r *http.Request) *Identity {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return nil
	}
	return &Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Policy decides who may administer the blog and mutate owned resources.
// Admin status comes from either the "admin" role or the configured email
// allow-list; every admin check in the service goes through Policy.
type Policy struct {
	adminEmails map[string]struct{}
}

// NewPolicy builds a Policy from an admin email allow-list. Emails are
// compared after normalization; blanks are ignored.
func NewPolicy(adminEmails []string) *Policy {
	set := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalize.Email(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return &Policy{adminEmails: set}
}

// IsAdminEmail reports whether email is on the allow-list.
func (p *Policy) IsAdminEmail(email string) bool {
	_, ok := p.adminEmails[normalize.Email(email)]
	return ok
}

// IsAdmin reports whether id has administrative rights.
func (p *Policy) IsAdmin(id *Identity) bool {
	if id == nil {
		return false
	}
	return normalize.Role(id.Role) == "admin" || p.IsAdminEmail(id.Email)
}

// CanMutate reports whether id may change a resource owned by ownerID.
func (p *Policy) CanMutate(id *Identity, ownerID string) bool {
	if id == nil {
		return false
	}
	return (id.ID != "" && id.ID == ownerID) || p.IsAdmin(id)
}

// Check returns nil when id may mutate a resource owned by ownerID,
// an Unauthenticated error when there is no identity, and a Forbidden
// error otherwise.
func (p *Policy) Check(id *Identity, ownerID string) error {
	if id == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if !p.CanMutate(id, ownerID) {
		return apperr.Forbidden("you do not have permission to modify this resource")
	}
	return nil
}

// RequireAdmin is middleware that allows only admins through.
// Anonymous callers get 401; signed-in non-admins get 403.
func (p *Policy) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromRequest(r)
		if id == nil {
			jsonutil.Unauthorized(w, "authentication required")
			return
		}
		if !p.IsAdmin(id) {
			jsonutil.Forbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserCtx returns the caller's normalized role, name and ObjectID. With no
// user, or a session ID that is not an ObjectID, it returns "visitor" and
// ok=false.
func UserCtx(r *http.Request) (role, name string, userID primitive.ObjectID, ok bool) {
	id := FromRequest(r)
	if id == nil {
		return "visitor", "", primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(id.ID)
	if err != nil {
		return "visitor", "", primitive.NilObjectID, false
	}
	return normalize.Role(id.Role), id.Name, oid, true
}

// IsLoggedIn reports whether the request carries a signed-in user.
func IsLoggedIn(r *http.Request) bool {
	return FromRequest(r) != nil
}

// HasRole reports whether the caller holds any of roles. Comparison is
// case-insensitive.
func HasRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	return ok && slices.ContainsFunc(roles, func(want string) bool {
		return normalize.Role(want) == role
	})
}
