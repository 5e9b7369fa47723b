// Package htmlsanitize cleans post bodies with bluemonday and reduces HTML
// to plain text for excerpts and reading-time counts.
package htmlsanitize

import (
	stdhtml "html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// rich is the policy for post bodies: bluemonday's user-generated-content
// set plus what the editor emits (tables, figures, highlighted code and
// heading anchors). External links get rel="nofollow noopener" and open in
// a new tab.
var rich = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("th", "td")

	p.AllowElements("figure", "figcaption", "u", "s", "sub", "sup", "mark")
	p.AllowAttrs("loading").Matching(regexp.MustCompile(`^(lazy|eager)$`)).OnElements("img")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")
	p.AllowAttrs("id").Matching(regexp.MustCompile(`^[a-z0-9-]+$`)).OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	p.RequireNoFollowOnFullyQualifiedLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
})

var strict = sync.OnceValue(bluemonday.StrictPolicy)

// Sanitize removes scripts, event handlers, unsafe URLs and any element the
// body policy does not allow.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return rich().Sanitize(html)
}

// IsPlainText reports whether content has no tag-like markup, as with
// Markdown or plain prose.
func IsPlainText(content string) bool {
	open := strings.IndexByte(content, '<')
	return open < 0 || !strings.Contains(content[open:], ">")
}

// Content prepares a post body for storage. Markdown and plain text pass
// through unchanged; anything that looks like HTML is sanitized.
func Content(content string) string {
	if IsPlainText(content) {
		return content
	}
	return Sanitize(content)
}

// PlainText strips every tag, unescapes entities and collapses whitespace
// runs to single spaces.
func PlainText(html string) string {
	if html == "" {
		return ""
	}
	text := stdhtml.UnescapeString(strict().Sanitize(html))
	return strings.Join(strings.Fields(text), " ")
}
