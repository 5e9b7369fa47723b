package textutil

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// HeadingIDs hands out unique anchor IDs within one document. Repeated
// headings get "-1", "-2", ... appended in encounter order. A HeadingIDs is
// not safe for concurrent use; create one per document.
type HeadingIDs struct {
	counts map[string]int
	used   map[string]struct{}
}

// NewHeadingIDs returns an empty generator.
func NewHeadingIDs() *HeadingIDs {
	return &HeadingIDs{
		counts: make(map[string]int),
		used:   make(map[string]struct{}),
	}
}

// Next returns the anchor ID for the next heading with the given text.
func (g *HeadingIDs) Next(text string) string {
	base := SlugifyHeading(text)
	if base == "" {
		base = fallbackHeading
	}

	n := g.counts[base]
	id := base
	if n > 0 {
		id = truncateRunes(base+"-"+strconv.Itoa(n), uniqueIDMaxLen)
	}
	// A literal heading such as "Intro 1" can already own "intro-1".
	for {
		if _, taken := g.used[id]; !taken {
			break
		}
		n++
		id = truncateRunes(base+"-"+strconv.Itoa(n), uniqueIDMaxLen)
	}

	g.counts[base] = n + 1
	g.used[id] = struct{}{}
	return id
}

// Reset forgets every ID handed out so far.
func (g *HeadingIDs) Reset() {
	g.counts = make(map[string]int)
	g.used = make(map[string]struct{})
}

// Heading is one entry of a table of contents.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

var (
	atxHeading  = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)(?:[ \t]+#+)?[ \t]*$`)
	htmlHeading = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
)

// TableOfContents lists the headings of a document with unique anchor IDs.
// Markdown ATX headings outside fenced code blocks are used when present;
// otherwise HTML <h1>..<h6> elements are scanned.
func TableOfContents(content string) []Heading {
	ids := NewHeadingIDs()

	if toc := markdownHeadings(content, ids); len(toc) > 0 {
		return toc
	}

	var toc []Heading
	for _, m := range htmlHeading.FindAllStringSubmatch(content, -1) {
		text := strings.Join(strings.Fields(html.UnescapeString(tagPattern.ReplaceAllString(m[2], ""))), " ")
		if text == "" {
			continue
		}
		level, _ := strconv.Atoi(m[1])
		toc = append(toc, Heading{Level: level, Text: text, ID: ids.Next(text)})
	}
	return toc
}

func markdownHeadings(content string, ids *HeadingIDs) []Heading {
	var toc []Heading
	inFence := false
	fence := ""

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			marker := trimmed[:3]
			switch {
			case !inFence:
				inFence, fence = true, marker
			case marker == fence:
				inFence = false
			}
			continue
		}
		if inFence {
			continue
		}

		m := atxHeading.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		toc = append(toc, Heading{Level: len(m[1]), Text: text, ID: ids.Next(text)})
	}
	return toc
}
