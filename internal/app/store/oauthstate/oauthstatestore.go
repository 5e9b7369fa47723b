// Package oauthstate stores the single-use state values that tie a Google
// callback to the sign-in attempt that started it.
package oauthstate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultTTL is how long a sign-in attempt may take before its state expires.
const DefaultTTL = 10 * time.Minute

// Collection holds issued states. A TTL index on expires_at and a unique
// index on state come from indexes.EnsureAll.
const Collection = "oauth_states"

// ErrInvalidState means the state is unknown, already used or expired.
var ErrInvalidState = errors.New("oauthstate: invalid or expired state")

type record struct {
	State     string    `bson:"state"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store issues and consumes OAuth states.
type Store struct {
	c   *mongo.Collection
	ttl time.Duration
	now func() time.Time
}

// New returns a Store on db's oauth_states collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection), ttl: DefaultTTL, now: time.Now}
}

// Issue records a fresh random state and returns it for the authorization
// URL.
func (s *Store) Issue(ctx context.Context) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	now := s.now()
	if _, err := s.c.InsertOne(ctx, record{State: state, ExpiresAt: now.Add(s.ttl), CreatedAt: now}); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

// Consume accepts state at most once. It returns ErrInvalidState for an
// unknown, used or expired value.
func (s *Store) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": s.now()},
	}).Err()
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrInvalidState
	case err != nil:
		return fmt.Errorf("consume state: %w", err)
	}
	return nil
}

// DeleteExpired removes states past their expiry, for servers whose TTL
// monitor is off or slow.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
