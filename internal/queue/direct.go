package queue

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"flowforge/engine/pkg/types"
)

// DirectQueue executes run requests in-process, synchronously, the moment
// they are enqueued. There is no durability: a request lost to a crash is
// gone. Concurrency is still capped so a burst of webhook triggers cannot
// exhaust the process.
type DirectQueue struct {
	runner Runner
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// NewDirectQueue creates a direct dispatcher allowing at most maxConcurrent
// simultaneous runs.
func NewDirectQueue(runner Runner, maxConcurrent int, logger *zap.Logger) *DirectQueue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectQueue{
		runner: runner,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: logger,
	}
}

// Enqueue runs the request immediately on the caller's goroutine, blocking
// until a concurrency slot is free. The run's own failure is reported in its
// persisted record, not here; Enqueue errors only on infrastructure problems.
func (q *DirectQueue) Enqueue(ctx context.Context, req types.RunRequest) error {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer q.sem.Release(1)

	q.logger.Debug("dispatching run directly",
		zap.String("run_id", req.RunID),
		zap.String("workflow_id", req.WorkflowID))
	return q.runner.Run(ctx, req)
}

// Start is a no-op; direct dispatch has no workers.
func (q *DirectQueue) Start(ctx context.Context) error { return nil }

// Close is a no-op.
func (q *DirectQueue) Close() error { return nil }
