// Package userstore persists accounts. A user is keyed by its ObjectID and
// found on sign-in by the lowercase email Google reports.
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/normalize"
	"github.com/dalemusser/stratablog/internal/app/system/status"
	"github.com/dalemusser/stratablog/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns mongo.ErrNoDocuments when no user has email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New("invalid role")
	errBadStatus      = errors.New(`status must be "active"|"disabled"`)
	errBadAuthMethod  = errors.New("invalid auth method")
	errNoEmail        = errors.New("email is required")
)

// Create normalizes u, fills in the active status and Google auth method
// when unset, and inserts it.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	u.AuthMethod = normalize.AuthMethod(u.AuthMethod)

	if u.Email == "" {
		return models.User{}, errNoEmail
	}
	if u.Status == "" {
		u.Status = status.Active
	}
	if u.AuthMethod == "" {
		u.AuthMethod = models.AuthMethodGoogle
	}

	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if !status.IsValid(u.Status) {
		return models.User{}, errBadStatus
	}
	if !models.IsValidAuthMethod(u.AuthMethod) {
		return models.User{}, errBadAuthMethod
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GoogleProfile is what the Google userinfo endpoint tells us about a user.
type GoogleProfile struct {
	GoogleID string
	Email    string
	Name     string
	PhotoURL string
}

// FindOrCreateGoogle returns the user with the profile's email, refreshing
// the stored name, photo and Google ID. When no such user exists one is
// created with newRole. created reports which path was taken.
func (s *Store) FindOrCreateGoogle(ctx context.Context, p GoogleProfile, newRole string) (u *models.User, created bool, err error) {
	email := normalize.Email(p.Email)
	if email == "" {
		return nil, false, errNoEmail
	}

	existing, err := s.GetByEmail(ctx, email)
	switch {
	case err == nil:
		set := bson.M{"updated_at": time.Now()}
		if name := normalize.Name(p.Name); name != "" {
			set["full_name"] = name
			set["full_name_ci"] = text.Fold(name)
		}
		if p.PhotoURL != "" {
			set["photo_url"] = p.PhotoURL
		}
		if p.GoogleID != "" {
			set["google_id"] = p.GoogleID
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		var out models.User
		if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": set}, opts).Decode(&out); err != nil {
			return nil, false, err
		}
		return &out, false, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, false, err
	}

	name := normalize.Name(p.Name)
	if name == "" {
		name = email
	}
	nu, err := s.Create(ctx, models.User{
		FullName:   name,
		Email:      email,
		PhotoURL:   p.PhotoURL,
		GoogleID:   p.GoogleID,
		AuthMethod: models.AuthMethodGoogle,
		Role:       newRole,
	})
	if errors.Is(err, ErrDuplicateEmail) {
		// Lost a race with a concurrent sign-in for the same address.
		again, gerr := s.GetByEmail(ctx, email)
		if gerr != nil {
			return nil, false, gerr
		}
		return again, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &nu, true, nil
}

// EnsureAdmin creates an active admin with the given email, or promotes and
// re-enables the existing user with that email.
func (s *Store) EnsureAdmin(ctx context.Context, email, fullName string) (*models.User, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, errNoEmail
	}
	name := normalize.Name(fullName)
	if name == "" {
		name = email
	}
	now := time.Now()

	update := bson.M{
		"$set": bson.M{
			"role":       models.RoleAdmin,
			"status":     status.Active,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"email":        email,
			"full_name":    name,
			"full_name_ci": text.Fold(name),
			"auth_method":  models.AuthMethodGoogle,
			"created_at":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var u models.User
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
