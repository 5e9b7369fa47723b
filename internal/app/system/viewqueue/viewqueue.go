// Package viewqueue records post views off the request path. Handlers call
// Emit, which never blocks; one worker drains the buffer into the counter
// store.
package viewqueue

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/stratablog/internal/app/system/metrics"
	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// DefaultSize is the buffer length used when none is configured.
const DefaultSize = 1024

// Incrementer persists one view of a post.
type Incrementer interface {
	Increment(ctx context.Context, postID string) (int64, error)
}

// Queue is a bounded buffer of pending view increments.
type Queue struct {
	store   Incrementer
	metrics *metrics.Metrics
	log     *zap.Logger
	timeout func() time.Duration

	ch       chan string
	done     chan struct{}
	mu       sync.RWMutex
	stopped  bool
	startOne sync.Once
}

// New creates a queue with room for size pending views.
func New(store Incrementer, size int, m *metrics.Metrics, log *zap.Logger) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		store:   store,
		metrics: m,
		log:     log,
		timeout: timeouts.Short,
		ch:      make(chan string, size),
		done:    make(chan struct{}),
	}
}

// Emit enqueues a view of postID. When the buffer is full, or the queue has
// been stopped, the view is dropped and Emit reports false.
func (q *Queue) Emit(postID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		q.metrics.ViewDropped()
		return false
	}
	select {
	case q.ch <- postID:
		q.metrics.ViewEmitted()
		return true
	default:
		q.metrics.ViewDropped()
		q.log.Debug("view queue full, dropping view", zap.String("post_id", postID))
		return false
	}
}

// Start launches the worker. Calling it more than once has no effect.
func (q *Queue) Start() {
	q.startOne.Do(func() {
		go q.run()
	})
}

func (q *Queue) run() {
	defer close(q.done)
	for id := range q.ch {
		q.record(id)
	}
}

func (q *Queue) record(postID string) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout())
	defer cancel()
	if _, err := q.store.Increment(ctx, postID); err != nil {
		q.metrics.ViewIncrementFailed()
		q.log.Warn("failed to record post view", zap.String("post_id", postID), zap.Error(err))
	}
}

// Stop refuses further views, waits for the worker to drain what is
// buffered and returns. If ctx ends first, Stop returns ctx.Err() and the
// remaining views are lost.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.ch)
	q.mu.Unlock()

	// A queue that was never started drains here.
	q.Start()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.log.Warn("view queue drain timed out", zap.Int("pending", len(q.ch)))
		return ctx.Err()
	}
}

// Len reports how many views are waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}
