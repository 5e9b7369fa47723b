// internal/app/store/subscriptions/substore.go
package substore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/normalize"
	"github.com/dalemusser/stratablog/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the blog subscription collection.
const Collection = "blogSubscriptions"

// Store provides access to blog email subscriptions. Deactivated records
// are kept; a partial unique index allows one active record per blog and
// email.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new subscription store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection(Collection),
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func blogOID(blogID string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(blogID)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation(map[string]string{"blogId": "Blog ID is not a valid ID."})
	}
	return oid, nil
}

func (s *Store) findActive(ctx context.Context, blog primitive.ObjectID, email string) (*models.BlogSubscription, error) {
	var sub models.BlogSubscription
	err := s.c.FindOne(ctx, bson.M{"blog_id": blog, "email": email, "is_active": true}).Decode(&sub)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Subscribe records an active subscription of email to blogID. When one
// already exists it is returned with created=false. userID may be empty.
func (s *Store) Subscribe(ctx context.Context, userID, blogID, email string) (sub *models.BlogSubscription, created bool, err error) {
	blog, err := blogOID(blogID)
	if err != nil {
		return nil, false, err
	}
	email = normalize.Email(email)

	existing, err := s.findActive(ctx, blog, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, apperr.Upstream("failed to check subscription", err)
	}

	rec := models.BlogSubscription{
		ID:        primitive.NewObjectID(),
		BlogID:    blog,
		Email:     email,
		UserID:    userID,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		if wafflemongo.IsDup(err) {
			// A concurrent request inserted the active record first.
			winner, ferr := s.findActive(ctx, blog, email)
			if ferr != nil {
				return nil, false, apperr.Upstream("failed to load subscription", ferr)
			}
			return winner, false, nil
		}
		return nil, false, apperr.Upstream("failed to create subscription", err)
	}
	return &rec, true, nil
}

// Unsubscribe deactivates every active subscription of email to blogID
// and returns how many were deactivated.
func (s *Store) Unsubscribe(ctx context.Context, blogID, email string) (int64, error) {
	blog, err := blogOID(blogID)
	if err != nil {
		return 0, err
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"blog_id": blog, "email": normalize.Email(email), "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "deactivated_at": s.now()}},
	)
	if err != nil {
		return 0, apperr.Upstream("failed to unsubscribe", err)
	}
	return res.ModifiedCount, nil
}

// ListActiveSubscribers returns the distinct emails actively subscribed to blogID.
func (s *Store) ListActiveSubscribers(ctx context.Context, blogID string) ([]string, error) {
	blog, err := blogOID(blogID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetProjection(bson.M{"email": 1}).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"blog_id": blog, "is_active": true}, opts)
	if err != nil {
		return nil, apperr.Upstream("failed to list subscribers", err)
	}
	defer cur.Close(ctx)

	var subs []models.BlogSubscription
	if err := cur.All(ctx, &subs); err != nil {
		return nil, apperr.Upstream("failed to list subscribers", err)
	}
	emails := make([]string, 0, len(subs))
	seen := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		if _, dup := seen[sub.Email]; dup {
			continue
		}
		seen[sub.Email] = struct{}{}
		emails = append(emails, sub.Email)
	}
	return emails, nil
}

// ListByUser returns the active subscriptions made by userID, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.BlogSubscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID, "is_active": true}, opts)
	if err != nil {
		return nil, apperr.Upstream("failed to list subscriptions", err)
	}
	defer cur.Close(ctx)

	subs := []models.BlogSubscription{}
	if err := cur.All(ctx, &subs); err != nil {
		return nil, apperr.Upstream("failed to list subscriptions", err)
	}
	return subs, nil
}
