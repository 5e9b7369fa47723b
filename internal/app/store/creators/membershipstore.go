// internal/app/store/creators/membershipstore.go
package creatorstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/status"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MembershipsCollection is the name of the membership collection.
const MembershipsCollection = "userSubscriptions"

// MembershipStore provides access to reader memberships with creators.
// Each subscriber/creator pair has one record that moves between active
// and cancelled.
type MembershipStore struct {
	c   *mongo.Collection
	now func() time.Time
}

// NewMemberships creates a new membership store.
func NewMemberships(db *mongo.Database) *MembershipStore {
	return &MembershipStore{
		c:   db.Collection(MembershipsCollection),
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Subscribe makes subscriberID an active member of creatorID on tierID,
// reactivating and re-tiering an existing record when there is one.
func (s *MembershipStore) Subscribe(ctx context.Context, subscriberID, creatorID, tierID string) (*models.Membership, error) {
	now := s.now()
	update := bson.M{
		"$set": bson.M{
			"tier_id":    tierID,
			"status":     status.Active,
			"start_date": now,
			"updated_at": now,
		},
		"$unset":       bson.M{"end_date": ""},
		"$setOnInsert": bson.M{"created_at": now},
	}
	filter := bson.M{"subscriber_id": subscriberID, "creator_id": creatorID}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var m models.Membership
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m); err != nil {
		return nil, apperr.Upstream("failed to save membership", err)
	}
	return &m, nil
}

// Cancel ends the active membership of subscriberID with creatorID.
func (s *MembershipStore) Cancel(ctx context.Context, subscriberID, creatorID string) (*models.Membership, error) {
	now := s.now()
	filter := bson.M{
		"subscriber_id": subscriberID,
		"creator_id":    creatorID,
		"status":        status.Active,
	}
	update := bson.M{"$set": bson.M{
		"status":     status.Cancelled,
		"end_date":   now,
		"updated_at": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m models.Membership
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("no active membership found")
		}
		return nil, apperr.Upstream("failed to cancel membership", err)
	}
	return &m, nil
}

// CountActive returns the number of active members of creatorID.
func (s *MembershipStore) CountActive(ctx context.Context, creatorID string) (int64, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"creator_id": creatorID, "status": status.Active})
	if err != nil {
		return 0, apperr.Upstream("failed to count members", err)
	}
	return n, nil
}

// IsActiveMember reports whether subscriberID holds an active membership
// with creatorID.
func (s *MembershipStore) IsActiveMember(ctx context.Context, subscriberID, creatorID string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"subscriber_id": subscriberID,
		"creator_id":    creatorID,
		"status":        status.Active,
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, apperr.Upstream("failed to check membership", err)
}

// CanAccessMemberContent reports whether userID may read creatorID's
// member-only content: creators always can, others need an active
// membership. Anonymous users cannot.
func (s *MembershipStore) CanAccessMemberContent(ctx context.Context, userID, creatorID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if userID == creatorID {
		return true, nil
	}
	return s.IsActiveMember(ctx, userID, creatorID)
}
