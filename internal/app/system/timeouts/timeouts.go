// Package timeouts holds the request-scoped deadlines used by handlers.
//
// Short covers single-document reads and writes, Medium covers list
// queries, Long covers cover-image uploads and Batch covers a subscriber
// notification fan-out. Values are set once at startup from configuration.
package timeouts

import (
	"sync/atomic"
	"time"
)

// Defaults used until Configure is called.
const (
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

var short, medium, long, batch atomic.Int64

func init() {
	Configure(Config{})
}

// Config holds the configurable deadlines. Zero fields select the default.
type Config struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure replaces every deadline, using the default for unset fields.
func Configure(cfg Config) {
	short.Store(int64(orDefault(cfg.Short, DefaultShort)))
	medium.Store(int64(orDefault(cfg.Medium, DefaultMedium)))
	long.Store(int64(orDefault(cfg.Long, DefaultLong)))
	batch.Store(int64(orDefault(cfg.Batch, DefaultBatch)))
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Short returns the deadline for single-document operations.
func Short() time.Duration { return time.Duration(short.Load()) }

// Medium returns the deadline for list queries.
func Medium() time.Duration { return time.Duration(medium.Load()) }

// Long returns the deadline for uploads.
func Long() time.Duration { return time.Duration(long.Load()) }

// Batch returns the deadline for a notification fan-out.
func Batch() time.Duration { return time.Duration(batch.Load()) }
