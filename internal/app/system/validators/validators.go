// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dalemusser/stratablog/internal/app/system/status"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collections lists every collection the service uses, in creation order,
// with its JSON Schema validator (nil for none).
var collections = []struct {
	name   string
	schema func() bson.M
}{
	{"users", usersSchema},
	{"oauth_states", nil},
	{"blogPosts", postsSchema},
	{"post_views", nil},
	{"blogSubscriptions", blogSubscriptionsSchema},
	{"creatorProfiles", nil},
	{"userSubscriptions", membershipsSchema},
}

// EnsureAll creates missing collections and attaches their validators.
// Servers without collMod validator support (some DocumentDB versions) are
// logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		zap.L().Warn("listing collections failed, creating blindly", zap.Error(err))
	}

	var errs []error
	for _, c := range collections {
		if err := ensureCollection(ctx, db, c.name, existing); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		if c.schema == nil {
			continue
		}
		err := setValidator(ctx, db, c.name, c.schema())
		switch {
		case err == nil:
			zap.L().Info("validator ensured", zap.String("collection", c.name))
		case isUnsupported(err):
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
		default:
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// ensureCollection creates name unless it is already in existing. A
// concurrent create is not an error.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, existing []string) error {
	if slices.Contains(existing, name) {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil && !isNamespaceExists(err) {
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	return db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}).Err()
}

// commandFailed reports whether err is a server command error with one of
// codes, or whose message contains one of the phrases.
func commandFailed(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && slices.Contains(codes, ce.Code) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return slices.ContainsFunc(phrases, func(p string) bool { return strings.Contains(msg, p) })
}

// NamespaceExists (48).
func isNamespaceExists(err error) bool {
	return commandFailed(err, []int32{48}, "already exists", "namespace exists")
}

// CommandNotFound (59) or CommandNotSupported (115).
func isUnsupported(err error) bool {
	return commandFailed(err, []int32{59, 115}, "no such command", "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "role", "status", "auth_method"},
			"properties": bson.M{
				"full_name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci": bson.M{"bsonType": "string"},
				"email":        bson.M{"bsonType": "string", "minLength": 3},
				"role":         bson.M{"enum": enum(models.AllRoles())},
				"status":       bson.M{"enum": enum(status.UserValues())},
				"auth_method":  bson.M{"enum": enum([]string{models.AuthMethodGoogle, models.AuthMethodTrust})},
			},
		},
	}
}

func postsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "slug", "content", "published", "author_id", "created_at", "updated_at"},
			"properties": bson.M{
				"title":       bson.M{"bsonType": "string", "minLength": 1},
				"slug":        bson.M{"bsonType": "string", "minLength": 1},
				"content":     bson.M{"bsonType": "string", "minLength": 1},
				"excerpt":     bson.M{"bsonType": "string", "maxLength": 300},
				"cover_image": bson.M{"bsonType": bson.A{"string", "null"}},
				"tags":        bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"published":   bson.M{"bsonType": "bool"},
				"author_id":   bson.M{"bsonType": "string"},
				"created_at":  bson.M{"bsonType": "date"},
				"updated_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}

func blogSubscriptionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"blog_id", "email", "is_active", "created_at"},
			"properties": bson.M{
				"blog_id":   bson.M{"bsonType": "objectId"},
				"email":     bson.M{"bsonType": "string", "minLength": 3},
				"is_active": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"subscriber_id", "creator_id", "tier_id", "status"},
			"properties": bson.M{
				"status": bson.M{"enum": enum(status.MembershipValues())},
			},
		},
	}
}

func enum(values []string) bson.A {
	a := make(bson.A, len(values))
	for i, v := range values {
		a[i] = v
	}
	return a
}
