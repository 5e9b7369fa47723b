package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotFound_JSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler().NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := rec.Body.String(); body != "{\"error\":\"not found\"}\n" {
		t.Errorf("body = %q", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler().MethodNotAllowed(rec, httptest.NewRequest(http.MethodPut, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestErrorLogger_Write(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		logged bool
	}{
		{"not found", apperr.NotFound("post not found"), http.StatusNotFound, false},
		{"validation", apperr.Validation(map[string]string{"title": "required"}), http.StatusBadRequest, false},
		{"upstream", apperr.Upstream("db", errors.New("down")), http.StatusBadGateway, true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			el := NewErrorLogger(zap.New(core))

			rec := httptest.NewRecorder()
			el.Write(rec, httptest.NewRequest(http.MethodGet, "/api/posts/x", nil), "failed", tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := logs.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v", got, tt.logged)
			}
		})
	}
}

func TestErrorLogger_LogIncludesRequest(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	el := NewErrorLogger(zap.New(core))

	el.Log(httptest.NewRequest(http.MethodPost, "/api/posts", nil), "create failed",
		errors.New("x"), zap.String("post_id", "abc"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/api/posts" || fields["method"] != "POST" || fields["post_id"] != "abc" {
		t.Errorf("fields = %v", fields)
	}
}
