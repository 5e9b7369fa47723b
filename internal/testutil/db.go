// Package testutil holds shared helpers for package tests: a throwaway
// MongoDB database per test, request builders and canned users.
package testutil

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/indexes"
	"github.com/dalemusser/stratablog/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoURI is used unless STRATABLOG_TEST_MONGO_URI is set.
const DefaultMongoURI = "mongodb://localhost:27017"

// dbPrefix starts every test database name.
const dbPrefix = "stratablog_test_"

// maxDBName is MongoDB's database name limit.
const maxDBName = 63

func mongoURI() string {
	if uri := os.Getenv("STRATABLOG_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return DefaultMongoURI
}

var sharedClient = sync.OnceValues(func() (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(mongoURI()).
		SetMaxPoolSize(100).
		SetServerSelectionTimeout(3*time.Second))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
})

// SetupTestDB returns an empty database with production indexes, named
// after the test so packages can run in parallel. The test is skipped when
// MongoDB is unreachable. The database is dropped on cleanup.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB not reachable at %s: %v", mongoURI(), err)
	}

	db := client.Database(dbName(t.Name()))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("create indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database on cleanup: %v", err)
		}
	})
	return db
}

// dbName maps a test name onto the characters and length MongoDB allows.
func dbName(testName string) string {
	suffix := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, testName)
	if n := maxDBName - len(dbPrefix); len(suffix) > n {
		suffix = suffix[:n]
	}
	return dbPrefix + suffix
}

// TestContext returns a context that bounds a single test's DB calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// RequireTransactions skips the test unless db supports multi-document
// transactions (replica set or mongos).
func RequireTransactions(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !txn.Supported(ctx, db) {
		t.Skip("MongoDB deployment does not support transactions")
	}
}
