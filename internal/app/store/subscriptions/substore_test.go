package substore

import (
	"sync"
	"testing"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Subscribe_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	blog := primitive.NewObjectID().Hex()

	first, created, err := store.Subscribe(ctx, "user-1", blog, " Reader@Example.com ")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !created {
		t.Error("first Subscribe() should create")
	}
	if first.Email != "reader@example.com" || !first.IsActive || first.UserID != "user-1" {
		t.Errorf("Subscribe() = %+v", first)
	}

	second, created, err := store.Subscribe(ctx, "user-1", blog, "reader@example.com")
	if err != nil {
		t.Fatalf("second Subscribe() error = %v", err)
	}
	if created {
		t.Error("second Subscribe() should not create")
	}
	if second.ID != first.ID {
		t.Errorf("second Subscribe() ID = %s, want %s", second.ID.Hex(), first.ID.Hex())
	}

	n, err := db.Collection(Collection).CountDocuments(ctx, bson.M{"is_active": true})
	if err != nil || n != 1 {
		t.Errorf("active records = %d, %v; want 1", n, err)
	}
}

func TestStore_Subscribe_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	blog := primitive.NewObjectID().Hex()

	var wg sync.WaitGroup
	ids := make([]primitive.ObjectID, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, _, err := store.Subscribe(ctx, "", blog, "race@example.com")
			errs[i] = err
			if sub != nil {
				ids[i] = sub.ID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Subscribe()[%d] error = %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("Subscribe()[%d] returned a different record", i)
		}
	}
}

func TestStore_Subscribe_InvalidBlog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, _, err := store.Subscribe(ctx, "", "nope", "a@b.co"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Subscribe() error = %v, want validation", err)
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	blog := primitive.NewObjectID().Hex()
	first, _, _ := store.Subscribe(ctx, "", blog, "leave@example.com")

	n, err := store.Unsubscribe(ctx, blog, "LEAVE@example.com")
	if err != nil || n != 1 {
		t.Fatalf("Unsubscribe() = %d, %v; want 1, nil", n, err)
	}
	n, err = store.Unsubscribe(ctx, blog, "leave@example.com")
	if err != nil || n != 0 {
		t.Errorf("second Unsubscribe() = %d, %v; want 0, nil", n, err)
	}

	// Re-subscribing creates a fresh record; history is kept.
	again, created, err := store.Subscribe(ctx, "", blog, "leave@example.com")
	if err != nil || !created {
		t.Fatalf("re-Subscribe() created=%v err=%v", created, err)
	}
	if again.ID == first.ID {
		t.Error("re-Subscribe() reused the deactivated record")
	}
	total, _ := db.Collection(Collection).CountDocuments(ctx, bson.M{})
	if total != 2 {
		t.Errorf("records = %d, want 2", total)
	}
}

func TestStore_ListActiveSubscribers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	blog := primitive.NewObjectID().Hex()
	other := primitive.NewObjectID().Hex()
	for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, _, err := store.Subscribe(ctx, "", blog, e); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", e, err)
		}
	}
	_, _, _ = store.Subscribe(ctx, "", other, "d@example.com")
	_, _ = store.Unsubscribe(ctx, blog, "b@example.com")

	emails, err := store.ListActiveSubscribers(ctx, blog)
	if err != nil {
		t.Fatalf("ListActiveSubscribers() error = %v", err)
	}
	if len(emails) != 2 || emails[0] != "a@example.com" || emails[1] != "c@example.com" {
		t.Errorf("ListActiveSubscribers() = %v", emails)
	}

	none, err := store.ListActiveSubscribers(ctx, primitive.NewObjectID().Hex())
	if err != nil || len(none) != 0 {
		t.Errorf("ListActiveSubscribers(empty) = %v, %v", none, err)
	}
}

func TestStore_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	b1, b2 := primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()
	_, _, _ = store.Subscribe(ctx, "u1", b1, "u1@example.com")
	_, _, _ = store.Subscribe(ctx, "u1", b2, "u1@example.com")
	_, _, _ = store.Subscribe(ctx, "u2", b1, "u2@example.com")
	_, _ = store.Unsubscribe(ctx, b2, "u1@example.com")

	subs, err := store.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(subs) != 1 || subs[0].BlogID.Hex() != b1 {
		t.Errorf("ListByUser() = %+v", subs)
	}
}
