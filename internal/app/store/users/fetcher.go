// internal/app/store/users/fetcher.go
package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/app/system/normalize"
	"github.com/dalemusser/stratablog/internal/app/system/status"
	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var _ auth.UserFetcher = (*Fetcher)(nil)

// Fetcher reloads the signed-in user for every request so role changes and
// disabled accounts apply to existing sessions.
type Fetcher struct {
	store  *Store
	logger *zap.Logger
}

// NewFetcher returns a Fetcher backed by the users collection in db.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{store: New(db), logger: logger}
}

// FetchUser returns the current identity for userID, or nil when the ID is
// malformed, the user is gone or disabled, or the lookup fails.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.store.GetByID(ctx, oid)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil
	case err != nil:
		if f.logger != nil {
			f.logger.Warn("session user lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return sessionUser(u)
}

func sessionUser(u *models.User) *auth.SessionUser {
	if normalize.Status(u.Status) == status.Disabled {
		return nil
	}
	return &auth.SessionUser{
		ID:       u.ID.Hex(),
		Name:     u.FullName,
		Email:    u.Email,
		Role:     normalize.Role(u.Role),
		PhotoURL: u.PhotoURL,
	}
}
