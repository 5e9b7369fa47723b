package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer secret-key", "secret-key", true},
		{"bearer secret-key", "secret-key", true},
		{"Bearer   padded  ", "padded", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic secret-key", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/notifications/send", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(req)
			if got != tt.want || ok != tt.ok {
				t.Errorf("BearerToken() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestHasValidAPIKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer k1")

	if !HasValidAPIKey(req, "k1") {
		t.Error("HasValidAPIKey() = false, want true")
	}
	if HasValidAPIKey(req, "k2") {
		t.Error("HasValidAPIKey() with wrong key = true")
	}
	if HasValidAPIKey(req, "") {
		t.Error("HasValidAPIKey() with no configured key = true")
	}
	if HasValidAPIKey(httptest.NewRequest(http.MethodPost, "/", nil), "k1") {
		t.Error("HasValidAPIKey() without a header = true")
	}
}
