// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"

	userstore "github.com/dalemusser/stratablog/internal/app/store/users"
	"github.com/dalemusser/stratablog/internal/app/system/normalize"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"go.uber.org/zap"
)

// AdminEnsurer creates or promotes an admin by email.
type AdminEnsurer interface {
	EnsureAdmin(ctx context.Context, email, fullName string) (*models.User, error)
}

var _ AdminEnsurer = (*userstore.Store)(nil)

// SeedAdmin makes sure the configured seed admin exists, is active and has
// the admin role. A blank email is a no-op.
func SeedAdmin(ctx context.Context, users AdminEnsurer, email, name string, logger *zap.Logger) error {
	email = normalize.Email(email)
	if email == "" {
		return nil
	}
	if name == "" {
		name = "Admin"
	}

	u, err := users.EnsureAdmin(ctx, email, name)
	if err != nil {
		return err
	}
	logger.Info("seed admin ensured",
		zap.String("email", email),
		zap.String("user_id", u.ID.Hex()))
	return nil
}
