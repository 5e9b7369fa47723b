package inputval

import (
	"testing"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
)

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/covers/a.png", true},
		{"http://localhost:8080", true},
		{"  https://example.com  ", true},
		{"", false},
		{"example.com", false},
		{"ftp://example.com", false},
		{"javascript:alert(1)", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsValidHTTPURL(tt.url); got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	for in, want := range map[string]bool{
		"507f1f77bcf86cd799439011":   true,
		" 507f1f77bcf86cd799439011 ": true,
		"507f1f77bcf86cd79943901":    false,
		"zzzzzzzzzzzzzzzzzzzzzzzz":   false,
		"":                           false,
	} {
		if got := IsValidObjectID(in); got != want {
			t.Errorf("IsValidObjectID(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsSubscriptionEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"reader@example.com", true},
		{"  padded@example.org ", true},
		{"a@b.c", true},
		{"no-at-sign.com", false},
		{"two@@example.com", false},
		{"missing@tld", false},
		{"space in@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsSubscriptionEmail(tt.in); got != tt.want {
				t.Errorf("IsSubscriptionEmail(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidCurrency(t *testing.T) {
	for in, want := range map[string]bool{"USD": true, "eur": true, "US": false, "DOLLARS": false, "": false} {
		if got := IsValidCurrency(in); got != want {
			t.Errorf("IsValidCurrency(%q) = %v, want %v", in, got, want)
		}
	}
}

type subscribeInput struct {
	BlogID string `json:"blogId" validate:"required,objectid" label:"Blog ID"`
	Email  string `json:"email" validate:"required,subemail" label:"Email"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		fields map[string]string
	}{
		{
			name: "valid",
			in:   subscribeInput{BlogID: "507f1f77bcf86cd799439011", Email: "a@b.co"},
		},
		{
			name: "pointer",
			in:   &subscribeInput{BlogID: "507f1f77bcf86cd799439011", Email: "a@b.co"},
		},
		{
			name:   "missing blog id",
			in:     subscribeInput{Email: "a@b.co"},
			fields: map[string]string{"blogId": "Blog ID is required."},
		},
		{
			name:   "bad id and email",
			in:     subscribeInput{BlogID: "nope", Email: "bad"},
			fields: map[string]string{"blogId": "Blog ID is not a valid ID.", "email": "Invalid email format"},
		},
		{
			name: "httpurl",
			in: struct {
				Cover string `json:"coverImage" validate:"httpurl" label:"Cover image"`
			}{Cover: "ftp://x"},
			fields: map[string]string{"coverImage": "Cover image must be a valid URL starting with http:// or https://."},
		},
		{
			name: "no label uses field name",
			in: struct {
				Name string `validate:"required"`
			}{},
			fields: map[string]string{"Name": "Name is required."},
		},
		{
			name: "max length",
			in: struct {
				Excerpt string `json:"excerpt" validate:"max=5" label:"Excerpt"`
			}{Excerpt: "123456"},
			fields: map[string]string{"excerpt": "Excerpt must be at most 5 characters."},
		},
		{
			name:   "non-struct",
			in:     "not a struct",
			fields: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.in)
			if res == nil {
				t.Fatal("Validate() returned nil")
			}
			got := res.Fields()
			if len(got) != len(tt.fields) {
				t.Fatalf("Fields() = %v, want %v", got, tt.fields)
			}
			for k, want := range tt.fields {
				if got[k] != want {
					t.Errorf("Fields()[%q] = %q, want %q", k, got[k], want)
				}
			}
		})
	}
}

func TestResult_Err(t *testing.T) {
	if err := Validate(subscribeInput{BlogID: "507f1f77bcf86cd799439011", Email: "a@b.co"}).Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	err := Validate(subscribeInput{BlogID: "507f1f77bcf86cd799439011", Email: "bad"}).Err()
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("Err() kind = %v, want validation", apperr.KindOf(err))
	}
	if msg := apperr.FieldsOf(err)["email"]; msg != "Invalid email format" {
		t.Errorf("fields[email] = %q, want %q", msg, "Invalid email format")
	}
}

func TestResult_Add(t *testing.T) {
	r := &Result{}
	if r.HasErrors() || r.Fields() != nil {
		t.Fatal("empty Result should have no errors")
	}
	r.Add("coverImage", "Cover image must be a valid URL.")
	r.Add("coverImage", "second message is ignored")
	if got := r.Fields()["coverImage"]; got != "Cover image must be a valid URL." {
		t.Errorf("Fields()[coverImage] = %q", got)
	}
}
