// Package feeds serves the CSV-backed auxiliary feeds (experiences and
// quotes). Each feed falls back to a bundled JSON copy when its sheet is
// unconfigured or unreachable.
package feeds

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/dalemusser/stratablog/internal/app/system/csvfeed"
)

//go:embed data/*.json
var dataFS embed.FS

// Experience is one entry of the work-experience feed.
type Experience struct {
	ID          int      `json:"id"`
	Role        string   `json:"role"`
	Company     string   `json:"company"`
	CompanyURL  string   `json:"companyUrl,omitempty"`
	Location    string   `json:"location"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Description []string `json:"description"`
	Skills      []string `json:"skills"`
	Logo        string   `json:"logo,omitempty"`
}

// Quote is one entry of the quotes feed.
type Quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// ExperienceOptions are the parse options for the experiences sheet.
var ExperienceOptions = csvfeed.Options{
	NumericColumns: []string{"id"},
	ListColumns:    []string{"skills", "description"},
}

// QuoteOptions are the parse options for the quotes sheet.
var QuoteOptions = csvfeed.Options{LowercaseHeaders: true}

// DecodeExperiences keeps rows with a non-zero id, a role and a company.
func DecodeExperiences(rows []csvfeed.Row) []Experience {
	out := make([]Experience, 0, len(rows))
	for _, r := range rows {
		e := Experience{
			ID:          r.Int("id"),
			Role:        r.String("role"),
			Company:     r.String("company"),
			CompanyURL:  r.String("companyUrl"),
			Location:    r.String("location"),
			StartDate:   r.String("startDate"),
			EndDate:     r.String("endDate"),
			Description: r.List("description"),
			Skills:      r.List("skills"),
			Logo:        r.String("logo"),
		}
		if e.ID == 0 || e.Role == "" || e.Company == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// DecodeQuotes keeps rows with both a quote and an author.
func DecodeQuotes(rows []csvfeed.Row) []Quote {
	out := make([]Quote, 0, len(rows))
	for _, r := range rows {
		q := Quote{Quote: r.String("quote"), Author: r.String("author")}
		if q.Quote == "" || q.Author == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}

// FallbackExperiences returns the bundled experiences.
func FallbackExperiences() ([]Experience, error) {
	return loadJSON[Experience]("data/experiences.json")
}

// FallbackQuotes returns the bundled quotes.
func FallbackQuotes() ([]Quote, error) {
	return loadJSON[Quote]("data/quotes.json")
}

func loadJSON[T any](name string) ([]T, error) {
	b, err := dataFS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}
