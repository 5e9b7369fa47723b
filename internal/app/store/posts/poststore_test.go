package poststore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	viewstore "github.com/dalemusser/stratablog/internal/app/store/views"
	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/timefmt"
	"github.com/dalemusser/stratablog/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var testAuthor = Author{ID: "author-1", Name: "Ada Author", PhotoURL: "https://img/ada.png"}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, testAuthor, CreateInput{
		Title:   "  Hello, World! ",
		Content: "<p>" + strings.Repeat("word ", 250) + "</p>",
		Tags:    []string{"go", " go ", "", "mongo"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ID.IsZero() {
		t.Error("Create() did not assign ID")
	}
	if created.Slug != "hello-world" {
		t.Errorf("Slug = %q, want %q", created.Slug, "hello-world")
	}
	if created.ReadingTime.Minutes != 2 || created.ReadingTime.Words != 250 || created.ReadingTime.Text != "2 mins read" {
		t.Errorf("ReadingTime = %+v", created.ReadingTime)
	}
	if !created.Published {
		t.Error("Published should default to true")
	}
	if created.Excerpt == "" || strings.Contains(created.Excerpt, "<p>") {
		t.Errorf("Excerpt = %q, want derived plain text", created.Excerpt)
	}
	if len(created.Tags) != 2 {
		t.Errorf("Tags = %v, want [go mongo]", created.Tags)
	}
	if created.CoverImage != nil {
		t.Errorf("CoverImage = %v, want nil", *created.CoverImage)
	}

	got, err := store.Get(ctx, created.ID.Hex())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Hello, World!" || got.AuthorName != "Ada Author" || got.AuthorID != "author-1" {
		t.Errorf("Get() = %+v", got)
	}
	if timefmt.Format(got.CreatedAt) != timefmt.Format(created.CreatedAt) {
		t.Errorf("CreatedAt round trip = %s, want %s", timefmt.Format(got.CreatedAt), timefmt.Format(created.CreatedAt))
	}
	if !strings.HasSuffix(timefmt.Format(got.CreatedAt), "Z") {
		t.Errorf("CreatedAt not UTC ISO: %s", timefmt.Format(got.CreatedAt))
	}
}

func TestStore_Create_Defaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.Create(ctx, Author{ID: "x"}, CreateInput{
		Title:      "!!!",
		Content:    "plain words",
		Excerpt:    "Mine",
		CoverImage: "https://cdn.example.com/c.png",
		Published:  boolPtr(false),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Slug != "post" {
		t.Errorf("Slug = %q, want fallback %q", p.Slug, "post")
	}
	if p.AuthorName != "Anonymous" {
		t.Errorf("AuthorName = %q, want Anonymous", p.AuthorName)
	}
	if p.Excerpt != "Mine" {
		t.Errorf("Excerpt = %q, want supplied value", p.Excerpt)
	}
	if p.Published {
		t.Error("Published = true, want false")
	}
	if p.CoverImage == nil || *p.CoverImage != "https://cdn.example.com/c.png" {
		t.Errorf("CoverImage = %v", p.CoverImage)
	}
	if p.Tags == nil {
		t.Error("Tags should be an empty slice, not nil")
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"blank title", CreateInput{Title: "   ", Content: "c"}, "title"},
		{"blank content", CreateInput{Title: "t", Content: " \n "}, "content"},
		{"long excerpt", CreateInput{Title: "t", Content: "c", Excerpt: strings.Repeat("x", 301)}, "excerpt"},
		{"bad cover", CreateInput{Title: "t", Content: "c", CoverImage: "ftp://x/y.png"}, "coverImage"},
		{"script only", CreateInput{Title: "t", Content: "<script>alert(1)</script>"}, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, testAuthor, tt.in)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("Create() error = %v, want validation", err)
			}
			if _, ok := apperr.FieldsOf(err)[tt.field]; !ok {
				t.Errorf("fields = %v, want key %q", apperr.FieldsOf(err), tt.field)
			}
		})
	}
}

func TestStore_Create_SanitizesContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.Create(ctx, testAuthor, CreateInput{
		Title:   "XSS",
		Content: `<p onclick="evil()">Safe</p><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if strings.Contains(p.Content, "script") || strings.Contains(p.Content, "onclick") {
		t.Errorf("Content not sanitized: %q", p.Content)
	}
	if !strings.Contains(p.Content, "Safe") {
		t.Errorf("Content lost text: %q", p.Content)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, id := range []string{"not-an-id", primitive.NewObjectID().Hex()} {
		if _, err := store.Get(ctx, id); !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("Get(%q) error = %v, want not found", id, err)
		}
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, testAuthor, CreateInput{Title: "First Title", Content: "short", Excerpt: "keep me"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	store.now = func() time.Time { return created.UpdatedAt.Add(time.Minute) }

	updated, err := store.Update(ctx, created.ID.Hex(), UpdateInput{
		Title:   strPtr("Second Title"),
		Content: strPtr(strings.Repeat("w ", 401)),
		Tags:    &[]string{"new"},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Slug != "second-title" {
		t.Errorf("Slug = %q, want %q", updated.Slug, "second-title")
	}
	if updated.ReadingTime.Minutes != 3 {
		t.Errorf("ReadingTime.Minutes = %d, want 3", updated.ReadingTime.Minutes)
	}
	if updated.Excerpt != "keep me" {
		t.Errorf("Excerpt changed to %q", updated.Excerpt)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Error("UpdatedAt was not stamped")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt changed on update")
	}

	// A patch with no fields still stamps updated_at.
	store.now = func() time.Time { return created.UpdatedAt.Add(2 * time.Minute) }
	again, err := store.Update(ctx, created.ID.Hex(), UpdateInput{})
	if err != nil {
		t.Fatalf("empty Update() error = %v", err)
	}
	if !again.UpdatedAt.After(updated.UpdatedAt) {
		t.Error("empty patch did not stamp UpdatedAt")
	}
	if again.Slug != "second-title" {
		t.Errorf("empty patch changed slug to %q", again.Slug)
	}
}

func TestStore_Update_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Update(ctx, primitive.NewObjectID().Hex(), UpdateInput{Title: strPtr("x")}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Update() missing error = %v, want not found", err)
	}

	created, _ := store.Create(ctx, testAuthor, CreateInput{Title: "T", Content: "C"})
	if _, err := store.Update(ctx, created.ID.Hex(), UpdateInput{Title: strPtr("  ")}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Update() blank title error = %v, want validation", err)
	}
}

func TestStore_Update_DerivedExcerptFollowsContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, testAuthor, CreateInput{Title: "T", Content: "<p>Old opening line.</p>"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Excerpt != "Old opening line." {
		t.Fatalf("derived Excerpt = %q", created.Excerpt)
	}

	updated, err := store.Update(ctx, created.ID.Hex(), UpdateInput{Content: strPtr("<p>New opening line.</p>")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Excerpt != "New opening line." {
		t.Errorf("Excerpt = %q, want it re-derived from the new content", updated.Excerpt)
	}

	// A blank excerpt in the patch asks for a derived one.
	updated, err = store.Update(ctx, created.ID.Hex(), UpdateInput{Excerpt: strPtr("Written by hand")})
	if err != nil || updated.Excerpt != "Written by hand" {
		t.Fatalf("Update(excerpt) = %q, %v", updated.Excerpt, err)
	}
	updated, err = store.Update(ctx, created.ID.Hex(), UpdateInput{Excerpt: strPtr("  ")})
	if err != nil || updated.Excerpt != "New opening line." {
		t.Errorf("Update(blank excerpt) = %q, %v; want derived", updated.Excerpt, err)
	}
}

func TestStore_Update_Cover(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, testAuthor, CreateInput{Title: "T", Content: "C"})
	id := created.ID.Hex()
	if _, err := store.SetCover(ctx, id, "https://files/covers/a.png", "covers/a.png"); err != nil {
		t.Fatalf("SetCover() error = %v", err)
	}

	same, err := store.Update(ctx, id, UpdateInput{CoverImage: strPtr("https://files/covers/a.png ")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if same.CoverImageKey != "covers/a.png" {
		t.Errorf("unchanged cover lost its key: %q", same.CoverImageKey)
	}

	cleared, err := store.Update(ctx, id, UpdateInput{CoverImage: strPtr("")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if cleared.CoverImage != nil || cleared.CoverImageKey != "" {
		t.Errorf("cleared cover = %v / %q", cleared.CoverImage, cleared.CoverImageKey)
	}
}

func TestStore_SetCover(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, testAuthor, CreateInput{Title: "T", Content: "C"})

	prev, err := store.SetCover(ctx, created.ID.Hex(), "https://files/covers/a.png", "covers/a.png")
	if err != nil || prev != "" {
		t.Fatalf("SetCover() = %q, %v; want \"\", nil", prev, err)
	}
	prev, err = store.SetCover(ctx, created.ID.Hex(), "https://files/covers/b.png", "covers/b.png")
	if err != nil || prev != "covers/a.png" {
		t.Fatalf("SetCover() = %q, %v; want covers/a.png", prev, err)
	}

	got, _ := store.Get(ctx, created.ID.Hex())
	if got.CoverImage == nil || *got.CoverImage != "https://files/covers/b.png" || got.CoverImageKey != "covers/b.png" {
		t.Errorf("cover = %v / %q", got.CoverImage, got.CoverImageKey)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(i int, author string, published bool, tags ...string) string {
		store.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		p, err := store.Create(ctx, Author{ID: author}, CreateInput{
			Title: "Post", Content: "body", Published: boolPtr(published), Tags: tags,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return p.ID.Hex()
	}
	oldest := mk(1, "a", true, "go")
	hidden := mk(2, "a", false, "go")
	newest := mk(3, "b", true)

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].ID.Hex() != newest || all[2].ID.Hex() != oldest {
		t.Errorf("List() order wrong")
	}

	pub, _ := store.List(ctx, ListFilter{PublishedOnly: true})
	for _, p := range pub {
		if p.ID.Hex() == hidden {
			t.Error("PublishedOnly listing included an unpublished post")
		}
	}
	if len(pub) != 2 {
		t.Errorf("PublishedOnly len = %d, want 2", len(pub))
	}

	mine, _ := store.List(ctx, ListFilter{AuthorID: "a"})
	if len(mine) != 2 {
		t.Errorf("AuthorID len = %d, want 2", len(mine))
	}

	// The owner can still fetch the unpublished post directly.
	if _, err := store.Get(ctx, hidden); err != nil {
		t.Errorf("Get(unpublished) error = %v", err)
	}

	tagged, _ := store.List(ctx, ListFilter{Tag: "go", PublishedOnly: true})
	if len(tagged) != 1 || tagged[0].ID.Hex() != oldest {
		t.Errorf("Tag listing = %d posts", len(tagged))
	}

	limited, _ := store.List(ctx, ListFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("Limit listing = %d posts", len(limited))
	}

	empty, _ := store.List(ctx, ListFilter{AuthorID: "nobody"})
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty listing = %v, want empty non-nil slice", empty)
	}
}

func TestStore_GetByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, _ := store.Create(ctx, testAuthor, CreateInput{Title: "A", Content: "C"})
	got, err := store.GetByIDs(ctx, []string{a.ID.Hex(), "junk", primitive.NewObjectID().Hex()})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(got) != 1 || got[a.ID.Hex()].Title != "A" {
		t.Errorf("GetByIDs() = %v", got)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db, zap.NewNop())
	views := viewstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, _ := store.Create(ctx, testAuthor, CreateInput{Title: "Bye", Content: "C"})
	if _, err := views.Increment(ctx, p.ID.Hex()); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	deleted, err := store.Delete(ctx, p.ID.Hex())
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.Title != "Bye" {
		t.Errorf("Delete() returned %q", deleted.Title)
	}
	if _, err := store.Get(ctx, p.ID.Hex()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	n, err := db.Collection(viewstore.Collection).CountDocuments(ctx, map[string]any{"_id": p.ID.Hex()})
	if err != nil || n != 0 {
		t.Errorf("view counter left behind: %d, %v", n, err)
	}

	if _, err := store.Delete(ctx, p.ID.Hex()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestStore_Delete_RollsBackOnFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireTransactions(t, db)
	store := New(db, zap.NewNop())
	views := viewstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, _ := store.Create(ctx, testAuthor, CreateInput{Title: "Stay", Content: "C"})
	if _, err := views.Increment(ctx, p.ID.Hex()); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	injected := errors.New("injected failure")
	store.afterPostDelete = func(context.Context) error { return injected }

	if _, err := store.Delete(ctx, p.ID.Hex()); !errors.Is(err, injected) {
		t.Fatalf("Delete() error = %v, want injected failure", err)
	}

	if _, err := store.Get(ctx, p.ID.Hex()); err != nil {
		t.Errorf("post should survive a failed delete: %v", err)
	}
	if n, _ := views.Get(ctx, p.ID.Hex()); n != 1 {
		t.Errorf("view count after failed delete = %d, want 1", n)
	}
}
