// internal/domain/models/post.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultAuthorName is shown for posts whose author has no display name.
const DefaultAuthorName = "Anonymous"

// ReadingTime is the stored reading-time estimate of a post body.
type ReadingTime struct {
	Minutes int    `bson:"minutes" json:"minutes"`
	Words   int    `bson:"words" json:"words"`
	Text    string `bson:"text" json:"text"`
}

// Post is a blog post. Slug and ReadingTime are derived from Title and
// Content on every write and are never set by clients.
type Post struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Title   string             `bson:"title"`
	Slug    string             `bson:"slug"`
	Content string             `bson:"content"`
	Excerpt string             `bson:"excerpt"`

	CoverImage    *string `bson:"cover_image"`
	CoverImageKey string  `bson:"cover_image_key,omitempty"` // storage key when uploaded here

	Tags        []string    `bson:"tags"`
	Published   bool        `bson:"published"`
	ReadingTime ReadingTime `bson:"reading_time"`

	AuthorID       string `bson:"author_id"`
	AuthorName     string `bson:"author_name"`
	AuthorPhotoURL string `bson:"author_photo_url,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// ViewCounter holds the view count of one post. Its _id is the post ID hex.
type ViewCounter struct {
	ID         string    `bson:"_id"`
	PostID     string    `bson:"post_id"`
	Count      int64     `bson:"count"`
	LastViewed time.Time `bson:"last_viewed"`
}
