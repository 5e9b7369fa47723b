package jsonutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusTeapot, map[string]int{"views": 3})

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"views":3}` {
		t.Errorf("body = %q", got)
	}
}

func TestJSON_NilData(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, nil)
	if rec.Body.Len() != 0 {
		t.Errorf("body should be empty, got %q", rec.Body.String())
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(rec, map[string]string{"title": "Title is required."})

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if body.Error != "validation failed" {
		t.Errorf("error = %q", body.Error)
	}
	if body.Fields["title"] != "Title is required." {
		t.Errorf("fields[title] = %q", body.Fields["title"])
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"not found", apperr.NotFound("post not found"), http.StatusNotFound, "post not found"},
		{"forbidden", apperr.Forbidden("not your post"), http.StatusForbidden, "not your post"},
		{"unauthenticated", apperr.Unauthenticated("sign in required"), http.StatusUnauthorized, "sign in required"},
		{"validation", apperr.Validation(map[string]string{"email": "bad"}), http.StatusBadRequest, "validation failed"},
		{"upstream", apperr.Upstream("mail provider unavailable", errors.New("dial tcp")), http.StatusBadGateway, "mail provider unavailable"},
		{"unknown", errors.New("mongo: secret details"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Hello"}`))
		var v struct {
			Title string `json:"title"`
		}
		if err := Decode(req, &v); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if v.Title != "Hello" {
			t.Errorf("Title = %q", v.Title)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var v map[string]any
		err := Decode(req, &v)
		if err == nil || err.Error() != "request body is empty" {
			t.Errorf("Decode() error = %v, want empty body error", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
		var v map[string]any
		if err := Decode(req, &v); err == nil {
			t.Error("Decode() should fail on malformed JSON")
		}
	})
}
