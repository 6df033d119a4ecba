package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"flowforge/engine/pkg/types"
)

// defaultKey is the Redis list the queue drains.
const defaultKey = "flowforge:queue:runs"

// popTimeout bounds each BRPOP so workers notice shutdown promptly.
const popTimeout = time.Second

// RedisQueue is the durable queue: enqueue pushes the encoded request onto a
// Redis list, and any worker instance may pop and execute it. Requests
// enqueued before a crash are still on the list when the process comes back.
type RedisQueue struct {
	client  *redis.Client
	runner  Runner
	key     string
	workers int
	logger  *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// RedisQueueOption customises a RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKey overrides the Redis list key.
func WithKey(key string) RedisQueueOption {
	return func(q *RedisQueue) { q.key = key }
}

// NewRedisQueue creates a durable queue draining with the given number of
// workers. The worker count is the concurrency cap: each worker executes one
// run at a time.
func NewRedisQueue(client *redis.Client, runner Runner, workers int, logger *zap.Logger, opts ...RedisQueueOption) *RedisQueue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &RedisQueue{
		client:  client,
		runner:  runner,
		key:     defaultKey,
		workers: workers,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue persists the request onto the Redis list.
func (q *RedisQueue) Enqueue(ctx context.Context, req types.RunRequest) error {
	payload, err := sonic.MarshalString(req)
	if err != nil {
		return fmt.Errorf("failed to encode run request: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue run request: %w", err)
	}
	q.logger.Debug("run request enqueued",
		zap.String("run_id", req.RunID),
		zap.String("workflow_id", req.WorkflowID))
	return nil
}

// Depth reports the number of pending requests on the list.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Start launches the worker pool. Calling Start on a started queue is a
// no-op, so restart paths may call it unconditionally.
func (q *RedisQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return nil
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(workerCtx, i)
	}
	q.logger.Info("queue workers started",
		zap.Int("workers", q.workers), zap.String("key", q.key))
	return nil
}

// Close stops the workers and waits for in-flight runs to complete.
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

func (q *RedisQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	log := q.logger.With(zap.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		vals, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Warn("failed to pop run request", zap.Error(err))
			time.Sleep(popTimeout)
			continue
		}
		// BRPOP returns [key, value].
		if len(vals) < 2 {
			continue
		}

		var req types.RunRequest
		if err := sonic.UnmarshalString(vals[1], &req); err != nil {
			// A malformed payload can never succeed; drop it rather
			// than poison the list.
			log.Error("discarding undecodable run request", zap.Error(err))
			continue
		}

		if err := q.runner.Run(ctx, req); err != nil {
			log.Error("run dispatch failed",
				zap.String("run_id", req.RunID),
				zap.String("workflow_id", req.WorkflowID),
				zap.Error(err))
		}
	}
}
