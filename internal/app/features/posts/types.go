package posts

import (
	"github.com/dalemusser/stratablog/internal/app/system/textutil"
	"github.com/dalemusser/stratablog/internal/app/system/timefmt"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"go.uber.org/zap"
)

// PostResponse is the wire form of a post.
type PostResponse struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Slug           string             `json:"slug"`
	Content        string             `json:"content"`
	Excerpt        string             `json:"excerpt"`
	CoverImage     *string            `json:"coverImage"`
	Tags           []string           `json:"tags"`
	Published      bool               `json:"published"`
	ReadingTime    models.ReadingTime `json:"readingTime"`
	AuthorID       string             `json:"authorId"`
	AuthorName     string             `json:"authorName"`
	AuthorPhotoURL string             `json:"authorPhotoURL,omitempty"`
	CreatedAt      string             `json:"createdAt"`
	UpdatedAt      string             `json:"updatedAt"`
	Views          int64              `json:"views"`
	TOC            []textutil.Heading `json:"toc,omitempty"`
}

func toResponse(p *models.Post, views int64, log *zap.Logger) PostResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PostResponse{
		ID:             p.ID.Hex(),
		Title:          p.Title,
		Slug:           p.Slug,
		Content:        p.Content,
		Excerpt:        p.Excerpt,
		CoverImage:     p.CoverImage,
		Tags:           tags,
		Published:      p.Published,
		ReadingTime:    p.ReadingTime,
		AuthorID:       p.AuthorID,
		AuthorName:     p.AuthorName,
		AuthorPhotoURL: p.AuthorPhotoURL,
		CreatedAt:      timefmt.ToISOStringSafe(p.CreatedAt, log),
		UpdatedAt:      timefmt.ToISOStringSafe(p.UpdatedAt, log),
		Views:          views,
	}
}

type createRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Excerpt    string   `json:"excerpt"`
	CoverImage string   `json:"coverImage"`
	Tags       []string `json:"tags"`
	Published  *bool    `json:"published"`
}

type updateRequest struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	CoverImage *string   `json:"coverImage"`
	Tags       *[]string `json:"tags"`
	Published  *bool     `json:"published"`
}

type coverResponse struct {
	CoverImage string `json:"coverImage"`
}
