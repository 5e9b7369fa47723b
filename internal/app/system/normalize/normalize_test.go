package normalize

import (
	"slices"
	"testing"
)

func TestLowerTrimmed(t *testing.T) {
	funcs := map[string]func(string) string{
		"Email":      Email,
		"Role":       Role,
		"Status":     Status,
		"AuthMethod": AuthMethod,
	}
	cases := map[string]string{
		" User@Example.COM\t": "user@example.com",
		"ADMIN":               "admin",
		"   ":                 "",
		"":                    "",
	}

	for name, fn := range funcs {
		for in, want := range cases {
			if got := fn(in); got != want {
				t.Errorf("%s(%q) = %q, want %q", name, in, got, want)
			}
		}
	}
}

func TestName(t *testing.T) {
	if got := Name("  Ada Lovelace \n"); got != "Ada Lovelace" {
		t.Errorf("Name() = %q", got)
	}
}

func TestEmailList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"a@x.com", []string{"a@x.com"}},
		{" A@x.com, b@Y.org ;c@z.net\nd@w.io ", []string{"a@x.com", "b@y.org", "c@z.net", "d@w.io"}},
		{",,;", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := EmailList(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("EmailList(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"trim and drop empty", []string{" go ", "", "  "}, []string{"go"}},
		{"dedupe keeps order", []string{"b", "a", "b", " a"}, []string{"b", "a"}},
		{"case kept", []string{"Go", "go"}, []string{"Go", "go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tags(tt.in)
			if got == nil || !slices.Equal(got, tt.want) {
				t.Errorf("Tags(%v) = %#v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCurrency(t *testing.T) {
	for in, want := range map[string]string{"": "USD", " eur ": "EUR", "gbp": "GBP"} {
		if got := Currency(in); got != want {
			t.Errorf("Currency(%q) = %q, want %q", in, got, want)
		}
	}
}
