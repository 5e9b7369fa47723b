package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	headingMaxLen   = 50
	uniqueIDMaxLen  = 60
	fallbackSlug    = "post"
	fallbackHeading = "heading"
)

// RE2's \s is ASCII only; \pZ adds no-break, em and ideographic spaces.
var (
	nonSlugChars    = regexp.MustCompile(`[^\w\pZ\s-]`)
	whitespaceRuns  = regexp.MustCompile(`[\pZ\s]+`)
	hyphenRuns      = regexp.MustCompile(`-+`)
	nonHeadingChars = regexp.MustCompile(`[^\p{L}\p{N}\pZ\s-]`)
	separatorRuns   = regexp.MustCompile(`[\pZ\s-]+`)

	emphasisMarkers = strings.NewReplacer("`", "", "**", "", "__", "", "*", "", "_", "")
	symbolWords     = strings.NewReplacer(
		"&", " and ",
		"+", " plus ",
		"%", " percent ",
		"@", " at ",
		"#", " hash ",
	)
)

// lower lowercases s with Unicode rules. A Caser keeps state, so each call
// gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Slugify derives a post slug from a title: lowercase, trimmed, non-word
// characters removed, and whitespace or hyphen runs collapsed to a single
// hyphen. Titles with no ASCII word characters yield "post".
func Slugify(title string) string {
	s := strings.TrimSpace(lower(title))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return fallbackSlug
	}
	return s
}

// SlugifyHeading derives an anchor ID from heading text. Markdown emphasis
// markers are removed, a few symbols become words, anything that is not a
// letter, digit, space or hyphen is dropped, and the result is hyphenated,
// trimmed and capped at 50 characters. Empty input yields "".
func SlugifyHeading(text string) string {
	if text == "" {
		return ""
	}

	s := emphasisMarkers.Replace(text)
	s = lower(s)
	s = symbolWords.Replace(s)
	s = nonHeadingChars.ReplaceAllString(s, "")
	s = separatorRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	s = truncateRunes(s, headingMaxLen)
	return strings.TrimRight(s, "-")
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
