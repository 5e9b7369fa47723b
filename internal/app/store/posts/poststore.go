// internal/app/store/posts/poststore.go
package poststore

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	viewstore "github.com/dalemusser/stratablog/internal/app/store/views"
	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratablog/internal/app/system/inputval"
	"github.com/dalemusser/stratablog/internal/app/system/normalize"
	"github.com/dalemusser/stratablog/internal/app/system/textutil"
	"github.com/dalemusser/stratablog/internal/app/system/txn"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection is the name of the posts collection.
const Collection = "blogPosts"

// MaxExcerptLength is the longest excerpt a client may supply.
const MaxExcerptLength = 300

var errNotFound = apperr.NotFound("post not found")

// Store provides access to blog posts. It performs no authorization;
// handlers check the policy before mutating.
type Store struct {
	db    *mongo.Database
	c     *mongo.Collection
	views *viewstore.Store
	log   *zap.Logger
	now   func() time.Time

	// afterPostDelete runs inside the delete transaction once the post is
	// gone and before its counter is removed.
	afterPostDelete func(ctx context.Context) error
}

// New creates a new post store.
func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:    db,
		c:     db.Collection(Collection),
		views: viewstore.New(db),
		log:   log,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Author identifies who is writing a post.
type Author struct {
	ID       string
	Name     string
	PhotoURL string
}

// CreateInput contains the client-supplied fields of a new post.
type CreateInput struct {
	Title      string
	Content    string
	Excerpt    string
	CoverImage string
	Tags       []string
	Published  *bool // nil means published
}

// UpdateInput holds the optional fields of a post patch.
// All fields are pointers - nil means "don't update this field".
// An empty CoverImage clears the cover.
type UpdateInput struct {
	Title      *string
	Content    *string
	Excerpt    *string
	CoverImage *string
	Tags       *[]string
	Published  *bool
}

// ListFilter narrows List. Zero values mean "no restriction".
type ListFilter struct {
	PublishedOnly bool
	AuthorID      string
	Tag           string
	Limit         int64
}

// Create validates and stores a new post, deriving its slug, reading time,
// and (when none is given) its excerpt.
func (s *Store) Create(ctx context.Context, author Author, in CreateInput) (*models.Post, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	content := htmlsanitize.Content(in.Content)
	if strings.TrimSpace(content) == "" {
		return nil, emptyAfterSanitize()
	}
	rt := textutil.EstimateReadingTime(content, textutil.DefaultWordsPerMinute)

	excerpt := strings.TrimSpace(in.Excerpt)
	if excerpt == "" {
		excerpt = textutil.DeriveExcerpt(content, textutil.DefaultExcerptLength)
	}

	published := true
	if in.Published != nil {
		published = *in.Published
	}

	authorName := strings.TrimSpace(author.Name)
	if authorName == "" {
		authorName = models.DefaultAuthorName
	}

	now := s.now()
	p := models.Post{
		ID:             primitive.NewObjectID(),
		Title:          title,
		Slug:           textutil.Slugify(title),
		Content:        content,
		Excerpt:        excerpt,
		CoverImage:     coverPtr(in.CoverImage),
		Tags:           normalize.Tags(in.Tags),
		Published:      published,
		ReadingTime:    models.ReadingTime(rt),
		AuthorID:       author.ID,
		AuthorName:     authorName,
		AuthorPhotoURL: author.PhotoURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return nil, apperr.Upstream("failed to create post", err)
	}
	return &p, nil
}

// Get loads a post by its hex ID. Malformed and unknown IDs are both
// reported as not found.
func (s *Store) Get(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errNotFound
	}
	var p models.Post
	if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errNotFound
		}
		return nil, apperr.Upstream("failed to load post", err)
	}
	return &p, nil
}

// GetByIDs loads the posts with the given hex IDs, keyed by ID. Malformed
// and unknown IDs are absent from the result.
func (s *Store) GetByIDs(ctx context.Context, ids []string) (map[string]models.Post, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	out := make(map[string]models.Post, len(oids))
	if len(oids) == 0 {
		return out, nil
	}

	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, apperr.Upstream("failed to load posts", err)
	}
	defer cur.Close(ctx)

	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, apperr.Upstream("failed to load posts", err)
	}
	for _, p := range posts {
		out[p.ID.Hex()] = p
	}
	return out, nil
}

// Update applies a patch. Only supplied fields are written; a new title
// re-derives the slug and new content is sanitized and re-timed.
// updated_at is always stamped. Returns the post after the update.
//
// A cover URL equal to the current one is left alone so an uploaded cover
// keeps its storage key. An excerpt that was derived from the old content
// (or is blank) is re-derived from new content unless the patch sets one.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errNotFound
	}
	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": s.now()}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		set["title"] = title
		set["slug"] = textutil.Slugify(title)
	}

	content := cur.Content
	if in.Content != nil {
		content = htmlsanitize.Content(*in.Content)
		if strings.TrimSpace(content) == "" {
			return nil, emptyAfterSanitize()
		}
		set["content"] = content
		set["reading_time"] = models.ReadingTime(textutil.EstimateReadingTime(content, textutil.DefaultWordsPerMinute))
	}

	switch {
	case in.Excerpt != nil && strings.TrimSpace(*in.Excerpt) != "":
		set["excerpt"] = strings.TrimSpace(*in.Excerpt)
	case in.Excerpt != nil, in.Content != nil && excerptIsDerived(cur):
		set["excerpt"] = textutil.DeriveExcerpt(content, textutil.DefaultExcerptLength)
	}

	if in.CoverImage != nil && coverChanged(cur.CoverImage, *in.CoverImage) {
		set["cover_image"] = coverPtr(*in.CoverImage)
		set["cover_image_key"] = ""
	}
	if in.Tags != nil {
		set["tags"] = normalize.Tags(*in.Tags)
	}
	if in.Published != nil {
		set["published"] = *in.Published
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errNotFound
		}
		return nil, apperr.Upstream("failed to update post", err)
	}
	return &p, nil
}

// SetCover points the post at an uploaded cover image and returns the
// storage key of the cover it replaced ("" when there was none).
func (s *Store) SetCover(ctx context.Context, id, url, key string) (previousKey string, err error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", errNotFound
	}
	update := bson.M{"$set": bson.M{
		"cover_image":     url,
		"cover_image_key": key,
		"updated_at":      s.now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Post
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&before); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", errNotFound
		}
		return "", apperr.Upstream("failed to set cover image", err)
	}
	return before.CoverImageKey, nil
}

// Delete removes a post and its view counter in one transaction and
// returns the deleted post. Either both are removed or neither is.
func (s *Store) Delete(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errNotFound
	}

	var deleted models.Post
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&deleted); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return errNotFound
			}
			return apperr.Upstream("failed to delete post", err)
		}
		if s.afterPostDelete != nil {
			if err := s.afterPostDelete(ctx); err != nil {
				return err
			}
		}
		return s.views.Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// List returns posts matching f, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Post, error) {
	filter := bson.M{}
	if f.PublishedOnly {
		filter["published"] = true
	}
	if f.AuthorID != "" {
		filter["author_id"] = f.AuthorID
	}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		filter["tags"] = tag
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Upstream("failed to list posts", err)
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, apperr.Upstream("failed to list posts", err)
	}
	return posts, nil
}

func validateCreate(in CreateInput) error {
	r := &inputval.Result{}
	if strings.TrimSpace(in.Title) == "" {
		r.Add("title", "Title is required.")
	}
	if strings.TrimSpace(in.Content) == "" {
		r.Add("content", "Content is required.")
	}
	checkExcerpt(r, in.Excerpt)
	checkCover(r, in.CoverImage)
	return r.Err()
}

func validateUpdate(in UpdateInput) error {
	r := &inputval.Result{}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		r.Add("title", "Title cannot be empty.")
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		r.Add("content", "Content cannot be empty.")
	}
	if in.Excerpt != nil {
		checkExcerpt(r, *in.Excerpt)
	}
	if in.CoverImage != nil {
		checkCover(r, *in.CoverImage)
	}
	return r.Err()
}

func checkExcerpt(r *inputval.Result, excerpt string) {
	if utf8.RuneCountInString(strings.TrimSpace(excerpt)) > MaxExcerptLength {
		r.Add("excerpt", "Excerpt must be at most 300 characters.")
	}
}

func checkCover(r *inputval.Result, cover string) {
	if c := strings.TrimSpace(cover); c != "" && !inputval.IsValidHTTPURL(c) {
		r.Add("coverImage", "Cover image must be an http or https URL.")
	}
}

func emptyAfterSanitize() error {
	return apperr.Validation(map[string]string{"content": "Content has no displayable text."})
}

// excerptIsDerived reports whether p's excerpt was generated from its
// content rather than written by the author.
func excerptIsDerived(p *models.Post) bool {
	return p.Excerpt == "" || p.Excerpt == textutil.DeriveExcerpt(p.Content, textutil.DefaultExcerptLength)
}

func coverChanged(current *string, next string) bool {
	n := coverPtr(next)
	if current == nil || n == nil {
		return current != n
	}
	return *current != *n
}

func coverPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
