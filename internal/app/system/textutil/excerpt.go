package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/stratablog/internal/app/system/htmlsanitize"
)

// DefaultExcerptLength is the excerpt size used when a post has none.
const DefaultExcerptLength = 160

const ellipsis = "…"

// DeriveExcerpt returns the visible text of content cut to at most max
// characters. Cuts fall on a word boundary when one exists and end with an
// ellipsis, which counts toward max.
func DeriveExcerpt(content string, max int) string {
	if max <= 0 {
		max = DefaultExcerptLength
	}

	text := htmlsanitize.PlainText(content)
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	cut := []rune(text)[:max-1]
	s := string(cut)
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, " .,;:") + ellipsis
}
