package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/vibecode/internal/types"
)

const laneBuffer = 100

// Queue manages per-lane FIFO channels with a global concurrency semaphore.
// Runs within a lane are processed in order, while the semaphore limits
// the total number of concurrent run processors across all lanes.
type Queue struct {
	lanes     map[types.LaneKey]chan *Run
	semaphore *semaphore.Weighted
	processor func(*Run) error
	active    atomic.Int64
	inflight  atomic.Int64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.LaneKey]chan *Run),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		for _, lane := range q.lanes {
			close(lane)
		}
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to its lane, creating the lane (and its goroutine) on
// first use. Returns an error if the queue is stopped or the lane is full.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx == nil {
		return fmt.Errorf("queue not started")
	}
	if q.closed {
		return fmt.Errorf("queue stopped")
	}

	lane, exists := q.lanes[run.Lane]
	if !exists {
		lane = make(chan *Run, laneBuffer)
		q.lanes[run.Lane] = lane
		q.wg.Add(1)
		go q.processLane(lane)
	}

	q.inflight.Add(1)
	select {
	case lane <- run:
		return nil
	default:
		q.inflight.Add(-1)
		return fmt.Errorf("queue full for lane %s", run.Lane)
	}
}

// processLane drains a single lane, acquiring a semaphore slot before
// running the processor synchronously.
func (q *Queue) processLane(lane chan *Run) {
	defer q.wg.Done()
	for {
		select {
		case run, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				q.inflight.Add(-1)
				return
			}
			q.run(run)
			q.semaphore.Release(1)
			q.inflight.Add(-1)
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) run(run *Run) {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()
	if processor == nil {
		return
	}

	q.active.Add(1)
	defer q.active.Add(-1)

	started := time.Now()
	run.Ctx = q.ctx
	run.Status = RunStatusRunning
	run.StartedAt = &started

	err := processor(run)

	ended := time.Now()
	run.EndedAt = &ended
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err
		slog.Error("run failed", "run_id", string(run.ID), "lane", string(run.Lane), "error", err)
		if run.OnFailure != nil {
			run.OnFailure(err)
		}
		if run.OnComplete != nil {
			run.OnComplete(fmt.Sprintf("Could not deliver to %s.", run.Name))
		}
		return
	}
	run.Status = RunStatusComplete
}

// Active reports how many runs are being processed right now.
func (q *Queue) Active() int64 {
	return q.active.Load()
}

// WaitIdle blocks until every enqueued run has been processed, or the
// timeout expires. Returns true if idle.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.inflight.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn func(*Run) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processor = fn
}
