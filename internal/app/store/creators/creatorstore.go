// internal/app/store/creators/creatorstore.go
package creatorstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/normalize"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfilesCollection is the name of the creator profile collection.
const ProfilesCollection = "creatorProfiles"

var (
	errProfileNotFound = apperr.NotFound("creator profile not found")
	errTierNotFound    = apperr.NotFound("membership tier not found")
)

// Store provides access to creator profiles and their membership tiers.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new creator profile store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection(ProfilesCollection),
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// ProfileInput holds the optional profile fields a creator may edit.
// All fields are pointers - nil means "don't update this field".
type ProfileInput struct {
	DisplayName       *string
	Bio               *string
	MembershipEnabled *bool
}

// TierInput describes a membership tier as supplied by a client.
type TierInput struct {
	Name        string
	Price       float64
	Currency    string
	Features    []string
	Description string
}

func (in TierInput) tier(id string) models.MembershipTier {
	features := normalize.Tags(in.Features)
	return models.MembershipTier{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Currency:    normalize.Currency(in.Currency),
		Features:    features,
		Description: strings.TrimSpace(in.Description),
	}
}

// GetProfile loads the profile of userID.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.CreatorProfile, error) {
	var p models.CreatorProfile
	if err := s.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errProfileNotFound
		}
		return nil, apperr.Upstream("failed to load creator profile", err)
	}
	if p.MembershipTiers == nil {
		p.MembershipTiers = []models.MembershipTier{}
	}
	return &p, nil
}

// UpsertProfile creates the profile of userID on first use and applies the
// supplied fields. New profiles start as creators with memberships off, no
// tiers and no subscribers.
func (s *Store) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (*models.CreatorProfile, error) {
	now := s.now()
	set := bson.M{"updated_at": now}
	setOnInsert := bson.M{
		"is_creator":         true,
		"membership_tiers":   bson.A{},
		"subscription_count": int64(0),
		"created_at":         now,
	}

	if in.DisplayName != nil {
		set["display_name"] = normalize.Name(*in.DisplayName)
	} else {
		setOnInsert["display_name"] = ""
	}
	if in.Bio != nil {
		set["bio"] = strings.TrimSpace(*in.Bio)
	} else {
		setOnInsert["bio"] = ""
	}
	if in.MembershipEnabled != nil {
		set["membership_enabled"] = *in.MembershipEnabled
	} else {
		setOnInsert["membership_enabled"] = false
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var p models.CreatorProfile
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set, "$setOnInsert": setOnInsert}, opts).Decode(&p)
	if err != nil {
		return nil, apperr.Upstream("failed to save creator profile", err)
	}
	return &p, nil
}

// AddTier appends a tier with a fresh ID and returns it.
func (s *Store) AddTier(ctx context.Context, userID string, in TierInput) (*models.MembershipTier, error) {
	t := in.tier(uuid.NewString())
	err := s.mutateTiers(ctx, userID, func(tiers []models.MembershipTier) ([]models.MembershipTier, error) {
		return append(tiers, t), nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ReplaceTier overwrites the tier with tierID, keeping its ID.
func (s *Store) ReplaceTier(ctx context.Context, userID, tierID string, in TierInput) (*models.MembershipTier, error) {
	t := in.tier(tierID)
	err := s.mutateTiers(ctx, userID, func(tiers []models.MembershipTier) ([]models.MembershipTier, error) {
		found := false
		out := make([]models.MembershipTier, len(tiers))
		for i, cur := range tiers {
			if cur.ID == tierID {
				out[i], found = t, true
				continue
			}
			out[i] = cur
		}
		if !found {
			return nil, errTierNotFound
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RemoveTier drops the tier with tierID. Removing an unknown tier is not
// an error.
func (s *Store) RemoveTier(ctx context.Context, userID, tierID string) error {
	return s.mutateTiers(ctx, userID, func(tiers []models.MembershipTier) ([]models.MembershipTier, error) {
		out := make([]models.MembershipTier, 0, len(tiers))
		for _, cur := range tiers {
			if cur.ID != tierID {
				out = append(out, cur)
			}
		}
		return out, nil
	})
}

// mutateTiers loads the tier array, transforms it and writes the whole
// array back.
func (s *Store) mutateTiers(ctx context.Context, userID string, fn func([]models.MembershipTier) ([]models.MembershipTier, error)) error {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	tiers, err := fn(p.MembershipTiers)
	if err != nil {
		return err
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"membership_tiers": tiers,
		"updated_at":       s.now(),
	}})
	if err != nil {
		return apperr.Upstream("failed to save membership tiers", err)
	}
	if res.MatchedCount == 0 {
		return errProfileNotFound
	}
	return nil
}

// SetSubscriptionCount stores the active member count of creatorID.
// A creator without a profile is left alone.
func (s *Store) SetSubscriptionCount(ctx context.Context, creatorID string, n int64) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": creatorID}, bson.M{"$set": bson.M{
		"subscription_count": n,
		"updated_at":         s.now(),
	}})
	if err != nil {
		return apperr.Upstream("failed to update subscription count", err)
	}
	return nil
}

// FindTier returns the tier with tierID from p, or nil.
func FindTier(p *models.CreatorProfile, tierID string) *models.MembershipTier {
	for i := range p.MembershipTiers {
		if p.MembershipTiers[i].ID == tierID {
			return &p.MembershipTiers[i]
		}
	}
	return nil
}
