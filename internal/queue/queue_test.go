package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowforge/engine/pkg/types"
)

// countingRunner records the requests it executed.
type countingRunner struct {
	mu       sync.Mutex
	ran      []types.RunRequest
	inFlight int32
	peak     int32
	delay    time.Duration
	done     chan string
}

func newCountingRunner(delay time.Duration) *countingRunner {
	return &countingRunner{delay: delay, done: make(chan string, 64)}
}

func (r *countingRunner) Run(ctx context.Context, req types.RunRequest) error {
	cur := atomic.AddInt32(&r.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&r.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&r.peak, peak, cur) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	atomic.AddInt32(&r.inFlight, -1)

	r.mu.Lock()
	r.ran = append(r.ran, req)
	r.mu.Unlock()
	r.done <- req.RunID
	return nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ran)
}

func newTestRedisQueue(t *testing.T, runner Runner, workers int) (*RedisQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client, runner, workers, nil), client
}

func waitFor(t *testing.T, done <-chan string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for run %d of %d", i+1, n)
		}
	}
}

func TestRedisQueue_EnqueueAndDispatch(t *testing.T) {
	runner := newCountingRunner(0)
	q, _ := newTestRedisQueue(t, runner, 2)

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	defer q.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, types.NewRunRequest("wf-1", "u1", types.TriggerManual, nil)))
	}
	waitFor(t, runner.done, 5)
	assert.Equal(t, 5, runner.count())
}

func TestRedisQueue_PendingRequestsSurviveUntilStart(t *testing.T) {
	runner := newCountingRunner(0)
	q, client := newTestRedisQueue(t, runner, 1)

	ctx := context.Background()

	// Enqueue while no worker is running, as if the process had crashed.
	req := types.NewRunRequest("wf-1", "u1", types.TriggerCron, nil)
	require.NoError(t, q.Enqueue(ctx, req))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	// A fresh queue over the same backing list picks the request up.
	q2 := NewRedisQueue(client, runner, 1, nil)
	require.NoError(t, q2.Start(ctx))
	defer q2.Close()

	waitFor(t, runner.done, 1)
	require.Equal(t, 1, runner.count())
	assert.Equal(t, req.RunID, runner.ran[0].RunID)
}

func TestRedisQueue_ConcurrencyBoundedByWorkers(t *testing.T) {
	runner := newCountingRunner(50 * time.Millisecond)
	q, _ := newTestRedisQueue(t, runner, 2)

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	defer q.Close()

	for i := 0; i < 6; i++ {
		require.NoError(t, q.Enqueue(ctx, types.NewRunRequest("wf-1", "u1", types.TriggerManual, nil)))
	}
	waitFor(t, runner.done, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&runner.peak), int32(2))
}

func TestRedisQueue_DiscardsUndecodablePayload(t *testing.T) {
	runner := newCountingRunner(0)
	q, client := newTestRedisQueue(t, runner, 1)

	ctx := context.Background()
	require.NoError(t, client.LPush(ctx, defaultKey, "not json").Err())
	require.NoError(t, q.Enqueue(ctx, types.NewRunRequest("wf-1", "u1", types.TriggerManual, nil)))

	require.NoError(t, q.Start(ctx))
	defer q.Close()

	// The garbage entry is dropped; the valid one still executes.
	waitFor(t, runner.done, 1)
	assert.Equal(t, 1, runner.count())
}

func TestRedisQueue_StartIsIdempotent(t *testing.T) {
	runner := newCountingRunner(0)
	q, _ := newTestRedisQueue(t, runner, 1)

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	require.NoError(t, q.Start(ctx))
	require.NoError(t, q.Close())
}

func TestDirectQueue_ExecutesSynchronously(t *testing.T) {
	runner := newCountingRunner(0)
	q := NewDirectQueue(runner, 4, nil)

	req := types.NewRunRequest("wf-1", "u1", types.TriggerManual, nil)
	require.NoError(t, q.Enqueue(context.Background(), req))

	// No Start needed; the request already ran on the calling goroutine.
	require.Equal(t, 1, runner.count())
	assert.Equal(t, req.RunID, runner.ran[0].RunID)
}

func TestDirectQueue_CapsConcurrency(t *testing.T) {
	runner := newCountingRunner(30 * time.Millisecond)
	q := NewDirectQueue(runner, 2, nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(context.Background(), types.NewRunRequest("wf-1", "u1", types.TriggerManual, nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, runner.count())
	assert.LessOrEqual(t, atomic.LoadInt32(&runner.peak), int32(2))
}
