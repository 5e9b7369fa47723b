// Package textutil derives text values from post content: reading time,
// slugs, heading anchors, tables of contents and excerpts. Everything here
// is pure and safe for concurrent use unless noted otherwise.
package textutil

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// DefaultWordsPerMinute is the reading speed used when none is given.
const DefaultWordsPerMinute = 200

var tagPattern = regexp.MustCompile(`<[^>]*>?`)

// ReadingTime is the estimated time to read a piece of content.
type ReadingTime struct {
	Minutes int    `json:"minutes"`
	Words   int    `json:"words"`
	Text    string `json:"text"`
}

// EstimateReadingTime strips markup tags, counts whitespace-separated words
// and converts the count to minutes at wpm words per minute (200 when wpm
// is not positive). The result is never below one minute.
func EstimateReadingTime(text string, wpm int) ReadingTime {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}

	words := len(strings.Fields(tagPattern.ReplaceAllString(text, "")))

	minutes := int(math.Ceil(float64(words) / float64(wpm)))
	if minutes < 1 {
		minutes = 1
	}

	return ReadingTime{
		Minutes: minutes,
		Words:   words,
		Text:    formatMinutes(minutes),
	}
}

func formatMinutes(n int) string {
	if n == 1 {
		return "1 min read"
	}
	return fmt.Sprintf("%d mins read", n)
}
