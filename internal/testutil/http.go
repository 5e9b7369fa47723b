package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser is the identity a handler test signs in as.
type TestUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

func newUser(role, name string) TestUser {
	return TestUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  name,
		Email: role + "@test.com",
		Role:  role,
	}
}

// Each call returns a user with a fresh ID.
func AdminUser() TestUser  { return newUser(models.RoleAdmin, "Test Admin") }
func AuthorUser() TestUser { return newUser(models.RoleAuthor, "Test Author") }
func ReaderUser() TestUser { return newUser(models.RoleReader, "Test Reader") }

// WithUser puts user in the request context the way LoadSessionUser would.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}

func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest is NewRequest signed in as user.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(NewRequest(method, target), user)
}

// NewJSONRequest sends body encoded as JSON. A string body is sent as is,
// which lets tests post malformed JSON.
func NewJSONRequest(method, target string, body any) *http.Request {
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			panic(err)
		}
		rdr = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ResponseRecorder adds assertions to httptest.ResponseRecorder.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

func (r *ResponseRecorder) AssertStatus(t testing.TB, want int) {
	t.Helper()
	if r.Code != want {
		t.Errorf("status = %d, want %d (body: %s)", r.Code, want, r.Body.String())
	}
}

func (r *ResponseRecorder) AssertContains(t testing.TB, want string) {
	t.Helper()
	if !strings.Contains(r.Body.String(), want) {
		t.Errorf("body %q does not contain %q", r.Body.String(), want)
	}
}

// DecodeJSON unmarshals the body into v or fails the test.
func (r *ResponseRecorder) DecodeJSON(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response body %q: %v", r.Body.String(), err)
	}
}
