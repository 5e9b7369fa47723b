// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one, and as plain sequential writes when it does not
// (a standalone server in development, DocumentDB with transactions off).
//
//	err := txn.Run(ctx, db, log, func(ctx context.Context) error {
//	    if _, err := posts.DeleteOne(ctx, filter); err != nil {
//	        return err
//	    }
//	    _, err := views.DeleteOne(ctx, viewFilter)
//	    return err
//	})
package txn

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Func is the unit of work. The ctx it receives is a session context inside
// a transaction, or the caller's context in the fallback.
type Func func(ctx context.Context) error

// unsupported remembers clients already known to lack transactions, so the
// fallback does not pay for a failed attempt on every call.
var unsupported sync.Map // *mongo.Client -> struct{}

// Run executes fn atomically when possible. fn must be safe to run again:
// the driver retries it on transient errors, and a transaction refused by
// the server is followed by one plain run.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn Func) error {
	client := db.Client()
	if _, known := unsupported.Load(client); known {
		return fn(ctx)
	}

	session, err := client.StartSession()
	if err != nil {
		warn(log, "cannot start session, writing without a transaction", err)
		return fn(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err == nil || !IsNotSupported(err) {
		return err
	}

	unsupported.Store(client, struct{}{})
	warn(log, "transactions not supported, writing without a transaction", err)
	return fn(ctx)
}

func warn(log *zap.Logger, msg string, err error) {
	if log != nil {
		log.Warn(msg, zap.Error(err))
	}
}

// Supported reports whether the deployment behind db can run multi-document
// transactions, i.e. it is a replica set member or a mongos router.
func Supported(ctx context.Context, db *mongo.Database) bool {
	var hello bson.M
	if err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	if name, _ := hello["setName"].(string); name != "" {
		return true
	}
	msg, _ := hello["msg"].(string)
	return msg == "isdbgrid"
}

// Server codes meaning "no transactions here": 20 (IllegalOperation on a
// standalone), 51 and 263 (operation not allowed in a transaction).
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err means the deployment cannot run the
// transaction at all, as opposed to the work inside it failing.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && notSupportedCodes[cmdErr.Code] {
		return true
	}

	// DocumentDB and older servers word this differently; two hits from
	// the list keep "session expired" and the like from matching.
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
