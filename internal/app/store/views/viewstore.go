// internal/app/store/views/viewstore.go
package viewstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the view counter collection.
const Collection = "post_views"

// Store provides access to per-post view counters. A counter's _id is the
// post ID hex so lookups never need a secondary index.
type Store struct {
	c *mongo.Collection
}

// New creates a new view counter store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Increment adds one view to postID, creating the counter on first view,
// and returns the new count.
func (s *Store) Increment(ctx context.Context, postID string) (int64, error) {
	update := bson.M{
		"$inc": bson.M{"count": int64(1)},
		"$set": bson.M{"post_id": postID, "last_viewed": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var vc models.ViewCounter
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&vc); err != nil {
		return 0, apperr.Upstream("failed to record view", err)
	}
	return vc.Count, nil
}

// Get returns the view count of postID. A post that was never viewed has 0.
func (s *Store) Get(ctx context.Context, postID string) (int64, error) {
	var vc models.ViewCounter
	err := s.c.FindOne(ctx, bson.M{"_id": postID}).Decode(&vc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Upstream("failed to load view count", err)
	}
	return vc.Count, nil
}

// GetMany returns counts for all postIDs in one query. Every requested ID
// is present in the result; missing counters map to 0.
func (s *Store) GetMany(ctx context.Context, postIDs []string) (map[string]int64, error) {
	out := ZeroCounts(postIDs)
	if len(postIDs) == 0 {
		return out, nil
	}

	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": postIDs}})
	if err != nil {
		return out, apperr.Upstream("failed to load view counts", err)
	}
	defer cur.Close(ctx)

	var counters []models.ViewCounter
	if err := cur.All(ctx, &counters); err != nil {
		return out, apperr.Upstream("failed to load view counts", err)
	}
	for _, vc := range counters {
		out[vc.ID] = vc.Count
	}
	return out, nil
}

// Delete removes the counter of postID. Deleting a missing counter is not
// an error.
func (s *Store) Delete(ctx context.Context, postID string) error {
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": postID}); err != nil {
		return apperr.Upstream("failed to delete view count", err)
	}
	return nil
}

// ZeroCounts maps every ID to 0. Listings fall back to it when counts
// cannot be loaded.
func ZeroCounts(postIDs []string) map[string]int64 {
	out := make(map[string]int64, len(postIDs))
	for _, id := range postIDs {
		out[id] = 0
	}
	return out
}
