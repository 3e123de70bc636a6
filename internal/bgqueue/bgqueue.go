// Package bgqueue is a small bounded, drop-oldest work queue shared by
// every best-effort operation in the pipeline (typing indicator, audit
// append, learning collection, SLA alerting, VOC record save — spec §5's
// "best-effort operations" list). Unlike internal/auditchain.Chain's own
// buffer (which falls back to an inline, blocking append when full, since
// the chain may never silently drop an event), a bgqueue.Queue is built
// for operations where dropping the oldest pending item is strictly
// preferable to blocking the pipeline or growing without bound.
package bgqueue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Job is a unit of best-effort work. Its error return is logged, not
// propagated — by construction, nothing downstream is waiting on it.
type Job func(ctx context.Context) error

// Queue runs jobs on a small fixed pool of workers, dropping the oldest
// queued job when the buffer is full rather than blocking the caller.
type Queue struct {
	jobs    chan Job
	logger  *slog.Logger
	dropped uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates a Queue with the given buffer capacity and worker count.
func New(capacity, workers int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{jobs: make(chan Job, capacity), logger: logger}
	q.start(workers)
	return q
}

func (q *Queue) start(workers int) {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.started = true
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			if err := job(ctx); err != nil {
				q.logger.Warn("bgqueue: job failed", "error", err)
			}
		}
	}
}

// Enqueue submits job for background execution. If the buffer is full,
// the oldest queued job is dropped (and logged) to make room — Enqueue
// itself never blocks.
func (q *Queue) Enqueue(job Job) {
	select {
	case q.jobs <- job:
		return
	default:
	}

	select {
	case <-q.jobs:
		atomic.AddUint64(&q.dropped, 1)
		q.logger.Warn("bgqueue: buffer full, dropped oldest queued job")
	default:
	}

	select {
	case q.jobs <- job:
	default:
		// Another producer raced us and refilled the slot we just freed;
		// the job is dropped rather than blocking the caller.
		atomic.AddUint64(&q.dropped, 1)
	}
}

// Dropped returns the count of jobs dropped so far, for metrics/tests.
func (q *Queue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

// Stop cancels all workers and waits for them to exit. Queued-but-not-
// yet-run jobs are discarded.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	cancel := q.cancel
	q.mu.Unlock()

	cancel()
	q.wg.Wait()
}
