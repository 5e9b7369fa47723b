// internal/app/system/indexes/indexes.go
package indexes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// collectionIndexes is the desired index set for one collection.
type collectionIndexes struct {
	collection string
	indexes    []mongo.IndexModel
}

func index(name string, keys bson.D, opts ...func(*options.IndexOptions)) mongo.IndexModel {
	o := options.Index().SetName(name)
	for _, fn := range opts {
		fn(o)
	}
	return mongo.IndexModel{Keys: keys, Options: o}
}

func unique(o *options.IndexOptions) { o.SetUnique(true) }

func ttl(o *options.IndexOptions) { o.SetExpireAfterSeconds(0) }

func partial(filter bson.D) func(*options.IndexOptions) {
	return func(o *options.IndexOptions) { o.SetPartialFilterExpression(filter) }
}

var desired = []collectionIndexes{
	{"users", []mongo.IndexModel{
		index("uniq_users_email", bson.D{{Key: "email", Value: 1}}, unique),
		index("idx_users_role_status_fullnameci", bson.D{
			{Key: "role", Value: 1}, {Key: "status", Value: 1}, {Key: "full_name_ci", Value: 1},
		}),
	}},
	{"oauth_states", []mongo.IndexModel{
		index("uniq_oauth_state", bson.D{{Key: "state", Value: 1}}, unique),
		index("idx_oauth_expires_ttl", bson.D{{Key: "expires_at", Value: 1}}, ttl),
	}},
	{"blogPosts", []mongo.IndexModel{
		index("idx_posts_published_created", bson.D{{Key: "published", Value: 1}, {Key: "created_at", Value: -1}}),
		index("idx_posts_author_created", bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}),
		index("idx_posts_tags_created", bson.D{{Key: "tags", Value: 1}, {Key: "created_at", Value: -1}}),
		// Titles repeat, so slugs do too.
		index("idx_posts_slug", bson.D{{Key: "slug", Value: 1}}),
	}},
	{"post_views", []mongo.IndexModel{
		index("idx_post_views_count", bson.D{{Key: "count", Value: -1}}),
	}},
	{"blogSubscriptions", []mongo.IndexModel{
		// One active subscription per (blog, email); inactive rows are history.
		index("uniq_blogsubs_active_blog_email",
			bson.D{{Key: "blog_id", Value: 1}, {Key: "email", Value: 1}},
			unique, partial(bson.D{{Key: "is_active", Value: true}})),
		index("idx_blogsubs_user_active", bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}}),
	}},
	{"userSubscriptions", []mongo.IndexModel{
		index("uniq_usersubs_subscriber_creator",
			bson.D{{Key: "subscriber_id", Value: 1}, {Key: "creator_id", Value: 1}}, unique),
		index("idx_usersubs_creator_status", bson.D{{Key: "creator_id", Value: 1}, {Key: "status", Value: 1}}),
	}},
}

// EnsureAll reconciles every collection's indexes at startup. It is safe to
// run repeatedly. Failures are collected so one bad collection does not hide
// the others.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var errs []error
	for _, ci := range desired {
		if err := ensure(ctx, db.Collection(ci.collection), ci.indexes); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ci.collection, err))
		}
	}
	return errors.Join(errs...)
}

// existingIndex is the subset of listIndexes output that reconcile compares.
type existingIndex struct {
	Name               string   `bson:"name"`
	Key                bson.D   `bson:"key"`
	Unique             bool     `bson:"unique"`
	ExpireAfterSeconds *int32   `bson:"expireAfterSeconds"`
	Partial            bson.Raw `bson:"partialFilterExpression"`
}

// ensure creates missing indexes and rebuilds any whose key pattern matches
// but whose options differ. Name-only differences are left alone.
func ensure(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}

	var errs []error
	for _, m := range models {
		name := *m.Options.Name
		sig := keySig(m.Keys.(bson.D))
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("index", name),
			zap.String("keys", sig))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if sameOptions(ex, m.Options) {
				log.Debug("index up to date", zap.String("existing_name", ex.Name))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Errorf("%s: drop %s: %w", name, ex.Name, err))
				continue
			}
			log.Info("dropped index with outdated options", zap.String("existing_name", ex.Name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) {
				err = fmt.Errorf("duplicates prevent unique index: %w", err)
			}
			log.Warn("index create failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		log.Info("index created", zap.Duration("took", time.Since(start)))
	}
	return errors.Join(errs...)
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			return nil, err
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// keySig renders a key pattern in order, e.g. "blog_id:1,email:1". Numeric
// directions print the same whether they decode as int32, int64 or float64.
func keySig(keys bson.D) string {
	parts := make([]string, len(keys))
	for i, kv := range keys {
		parts[i] = fmt.Sprintf("%s:%v", kv.Key, kv.Value)
	}
	return strings.Join(parts, ",")
}

func sameOptions(ex existingIndex, want *options.IndexOptions) bool {
	if ex.Unique != (want.Unique != nil && *want.Unique) {
		return false
	}
	if (ex.ExpireAfterSeconds != nil) != (want.ExpireAfterSeconds != nil) {
		return false
	}
	if want.PartialFilterExpression == nil {
		return len(ex.Partial) == 0
	}
	raw, err := bson.Marshal(want.PartialFilterExpression)
	return err == nil && bytes.Equal(raw, ex.Partial)
}

func isDuplicateKeyErr(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "E11000")
}
