package textutil

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateReadingTime(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wpm         int
		wantMinutes int
		wantWords   int
		wantText    string
	}{
		{"empty text is one minute", "", 200, 1, 0, "1 min read"},
		{"short text", "hello world", 200, 1, 2, "1 min read"},
		{"exact boundary", strings.Repeat("word ", 400), 200, 2, 400, "2 mins read"},
		{"rounds up", strings.Repeat("word ", 401), 200, 3, 401, "3 mins read"},
		{"tags ignored", "<p>one <strong>two</strong></p>", 200, 1, 2, "1 min read"},
		{"default speed", strings.Repeat("w ", 201), 0, 2, 201, "2 mins read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateReadingTime(tt.text, tt.wpm)
			if got.Minutes != tt.wantMinutes {
				t.Errorf("Minutes = %d, want %d", got.Minutes, tt.wantMinutes)
			}
			if got.Words != tt.wantWords {
				t.Errorf("Words = %d, want %d", got.Words, tt.wantWords)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Go -- is   fun!  ", "go-is-fun"},
		{"Rock & Roll", "rock-roll"},
		{"snake_case_title", "snake_case_title"},
		{"!!!", "post"},
		{"", "post"},
		{"Hello\u00a0World", "hello-world"},
		{"Hello\u3000World", "hello-world"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugifyHeading(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Getting Started", "getting-started"},
		{"**Bold** and `code`", "bold-and-code"},
		{"Q&A", "q-and-a"},
		{"C++ tips", "c-plus-plus-tips"},
		{"100% done", "100-percent-done"},
		{"Café au lait", "café-au-lait"},
		{"--Leading and trailing--", "leading-and-trailing"},
		{"Hello\u00a0World", "hello-world"},
		{"Hello\u3000World", "hello-world"},
		{"Hello\u2003World", "hello-world"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SlugifyHeading(tt.in); got != tt.want {
				t.Errorf("SlugifyHeading(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugifyHeading_Shape(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9-]*$`)
	inputs := []string{
		"A very long heading that keeps going and going well past the fifty character cap",
		"Symbols: $ ^ ( ) { } [ ] | \\ / ? < > , . ; '",
		"   spaced    out   ",
		"#hash tags#",
		"x - - - y",
	}

	for _, in := range inputs {
		got := SlugifyHeading(in)
		if !valid.MatchString(got) {
			t.Errorf("SlugifyHeading(%q) = %q has characters outside [a-z0-9-]", in, got)
		}
		if utf8.RuneCountInString(got) > 50 {
			t.Errorf("SlugifyHeading(%q) length = %d, want <= 50", in, utf8.RuneCountInString(got))
		}
		if strings.HasPrefix(got, "-") || strings.HasSuffix(got, "-") || strings.Contains(got, "--") {
			t.Errorf("SlugifyHeading(%q) = %q has stray hyphens", in, got)
		}
	}
}

func TestHeadingIDs_Repeats(t *testing.T) {
	ids := NewHeadingIDs()
	want := []string{"intro", "intro-1", "intro-2"}
	for i, w := range want {
		if got := ids.Next("Intro"); got != w {
			t.Errorf("Next(Intro) #%d = %q, want %q", i, got, w)
		}
	}

	ids.Reset()
	if got := ids.Next("Intro"); got != "intro" {
		t.Errorf("after Reset, Next(Intro) = %q, want intro", got)
	}
}

func TestHeadingIDs_LiteralCollision(t *testing.T) {
	ids := NewHeadingIDs()
	first := ids.Next("Intro 1")
	second := ids.Next("Intro")
	third := ids.Next("Intro")

	if first != "intro-1" || second != "intro" {
		t.Fatalf("got %q, %q", first, second)
	}
	if third == first {
		t.Errorf("Next(Intro) reused %q", third)
	}
	if third != "intro-2" {
		t.Errorf("Next(Intro) = %q, want intro-2", third)
	}
}

func TestHeadingIDs_EmptyText(t *testing.T) {
	ids := NewHeadingIDs()
	if got := ids.Next("!!!"); got != "heading" {
		t.Errorf("Next(!!!) = %q, want heading", got)
	}
	if got := ids.Next(""); got != "heading-1" {
		t.Errorf("Next(\"\") = %q, want heading-1", got)
	}
}

func TestTableOfContents_Markdown(t *testing.T) {
	content := strings.Join([]string{
		"# Intro",
		"Some text.",
		"```",
		"# not a heading",
		"```",
		"## Setup ##",
		"## Intro",
		"### C#",
	}, "\n")

	got := TableOfContents(content)
	want := []Heading{
		{Level: 1, Text: "Intro", ID: "intro"},
		{Level: 2, Text: "Setup", ID: "setup"},
		{Level: 2, Text: "Intro", ID: "intro-1"},
		{Level: 3, Text: "C#", ID: "c-hash"},
	}

	if len(got) != len(want) {
		t.Fatalf("TableOfContents() returned %d headings, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTableOfContents_HTML(t *testing.T) {
	content := `<h2 class="x">First &amp; <em>Best</em></h2><p>text</p><h3>Next</h3>`
	got := TableOfContents(content)

	if len(got) != 2 {
		t.Fatalf("TableOfContents() returned %d headings, want 2", len(got))
	}
	if got[0].Level != 2 || got[0].Text != "First & Best" || got[0].ID != "first-and-best" {
		t.Errorf("heading 0 = %+v", got[0])
	}
	if got[1].Level != 3 || got[1].ID != "next" {
		t.Errorf("heading 1 = %+v", got[1])
	}
}

func TestDeriveExcerpt(t *testing.T) {
	short := "<p>Short post.</p>"
	if got := DeriveExcerpt(short, 160); got != "Short post." {
		t.Errorf("DeriveExcerpt(short) = %q", got)
	}

	long := "<p>" + strings.Repeat("lorem ipsum ", 40) + "</p>"
	got := DeriveExcerpt(long, 50)
	if n := utf8.RuneCountInString(got); n > 50 {
		t.Errorf("DeriveExcerpt() length = %d, want <= 50", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("DeriveExcerpt() = %q, want trailing ellipsis", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("DeriveExcerpt() = %q contains markup", got)
	}
}
