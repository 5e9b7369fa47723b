// internal/domain/models/user.go
package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold. Admins manage everything, authors publish posts,
// readers only subscribe.
const (
	RoleAdmin  = "admin"
	RoleAuthor = "author"
	RoleReader = "reader"
)

var roles = []string{RoleAdmin, RoleAuthor, RoleReader}

// User is someone who has signed in with Google. Email is stored lowercase
// and is the lookup key on sign-in.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Email      string             `bson:"email" json:"email"`
	PhotoURL   string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	GoogleID   string             `bson:"google_id,omitempty" json:"-"`
	AuthMethod string             `bson:"auth_method" json:"auth_method"`
	Role       string             `bson:"role" json:"role"`
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// AllRoles returns every role in privilege order.
func AllRoles() []string {
	return slices.Clone(roles)
}

// IsValidRole reports whether role is one of AllRoles.
func IsValidRole(role string) bool {
	return slices.Contains(roles, role)
}
