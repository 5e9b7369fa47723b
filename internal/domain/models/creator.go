// internal/domain/models/creator.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCurrency applies to tiers created without a currency.
const DefaultCurrency = "USD"

// MembershipTier is one paid level a creator offers.
type MembershipTier struct {
	ID          string   `bson:"id" json:"id"`
	Name        string   `bson:"name" json:"name"`
	Price       float64  `bson:"price" json:"price"`
	Currency    string   `bson:"currency" json:"currency"`
	Features    []string `bson:"features" json:"features"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
}

// CreatorProfile holds a creator's public profile and tiers. Its _id is
// the creator's user ID hex.
type CreatorProfile struct {
	ID                string           `bson:"_id"`
	DisplayName       string           `bson:"display_name"`
	Bio               string           `bson:"bio"`
	IsCreator         bool             `bson:"is_creator"`
	MembershipEnabled bool             `bson:"membership_enabled"`
	MembershipTiers   []MembershipTier `bson:"membership_tiers"`
	SubscriptionCount int64            `bson:"subscription_count"`
	CreatedAt         time.Time        `bson:"created_at"`
	UpdatedAt         time.Time        `bson:"updated_at"`
}

// Membership records a reader's membership with a creator.
type Membership struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	SubscriberID string             `bson:"subscriber_id"`
	CreatorID    string             `bson:"creator_id"`
	TierID       string             `bson:"tier_id"`
	Status       string             `bson:"status"`
	StartDate    time.Time          `bson:"start_date"`
	EndDate      *time.Time         `bson:"end_date,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}
