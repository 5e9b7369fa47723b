package htmlsanitize

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "formatting kept",
			input:    "<p>Hello <strong>World</strong> <em>and</em> <mark>more</mark></p>",
			contains: []string{"<p>", "<strong>World</strong>", "<em>and</em>", "<mark>more</mark>"},
		},
		{
			name:     "script removed",
			input:    "<p>Hello</p><script>alert('xss')</script>",
			contains: []string{"<p>Hello</p>"},
			excludes: []string{"<script", "alert"},
		},
		{
			name:     "event handlers removed",
			input:    `<p onclick="steal()">Click</p><img src="https://img.example.com/a.png" onerror="steal()">`,
			contains: []string{"Click", "<img"},
			excludes: []string{"onclick", "onerror", "steal"},
		},
		{
			name:     "javascript URL removed",
			input:    `<a href="javascript:alert(1)">Link</a>`,
			contains: []string{"Link"},
			excludes: []string{"javascript:"},
		},
		{
			name:     "external link opens safely",
			input:    `<a href="https://example.com">Link</a>`,
			contains: []string{`href="https://example.com"`, "nofollow", `target="_blank"`},
		},
		{
			name:     "iframe and style removed",
			input:    `<iframe src="https://evil.com"></iframe><style>body{display:none}</style><p>Content</p>`,
			contains: []string{"<p>Content</p>"},
			excludes: []string{"<iframe", "evil.com", "<style", "display:none"},
		},
		{
			name:     "tables kept",
			input:    `<table><caption>Plan</caption><tr><td colspan="2">Cell</td></tr></table>`,
			contains: []string{"<table>", "<caption>Plan</caption>", `<td colspan="2">Cell</td>`},
		},
		{
			name:     "non-numeric colspan dropped",
			input:    `<table><tr><td colspan="x">Cell</td></tr></table>`,
			excludes: []string{"colspan"},
		},
		{
			name:     "figure and lazy image kept",
			input:    `<figure><img src="https://img.example.com/a.png" loading="lazy"><figcaption>Cap</figcaption></figure>`,
			contains: []string{"<figure>", `loading="lazy"`, "<figcaption>Cap</figcaption>"},
		},
		{
			name:     "code language class kept",
			input:    `<pre><code class="language-go">x := 1</code></pre>`,
			contains: []string{`class="language-go"`},
		},
		{
			name:     "heading anchor kept",
			input:    `<h2 id="getting-started">Getting started</h2>`,
			contains: []string{`<h2 id="getting-started">`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Sanitize() = %q, missing %q", got, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Sanitize() = %q, should not contain %q", got, s)
				}
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	once := Sanitize(`<p>Hello <a href="/about">World</a></p><ul><li>one</li></ul>`)
	if twice := Sanitize(once); twice != once {
		t.Errorf("Sanitize() not idempotent: %q then %q", once, twice)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"", true},
		{"# Heading\n\n**bold**", true},
		{"a < b", true},
		{"b > a", true},
		{"> quoted <", true},
		{"<p>tag</p>", false},
		{"1 < 2 and 3 > 2", false},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			if got := IsPlainText(tt.content); got != tt.want {
				t.Errorf("IsPlainText(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"markdown untouched", "# Title\n\nSome **bold** text", "# Title\n\nSome **bold** text"},
		{"empty", "", ""},
		{"html sanitized", "<p>Hi</p><script>x()</script>", "<p>Hi</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Content(tt.input); got != tt.want {
				t.Errorf("Content(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"tags stripped", "<p>Hello <strong>World</strong></p>", "Hello World"},
		{"entities unescaped", "<p>Tom &amp; Jerry</p>", "Tom & Jerry"},
		{"whitespace collapsed", "<p>one</p>\n\n<p>two   three</p>", "one two three"},
		{"plain input", "just text", "just text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
