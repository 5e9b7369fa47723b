// internal/domain/models/subscription.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlogSubscription is an email subscription to one blog post's author
// updates. At most one active record exists per (BlogID, Email).
type BlogSubscription struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	BlogID        primitive.ObjectID `bson:"blog_id"`
	Email         string             `bson:"email"`
	UserID        string             `bson:"user_id,omitempty"`
	IsActive      bool               `bson:"is_active"`
	CreatedAt     time.Time          `bson:"created_at"`
	DeactivatedAt *time.Time         `bson:"deactivated_at,omitempty"`
}
