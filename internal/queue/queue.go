// Package queue dispatches workflow run requests to the executor under a
// bounded concurrency cap. Two implementations exist: a Redis-backed durable
// queue whose jobs survive process restarts, and an in-process direct
// dispatcher used as a deliberate degraded mode when no backing store is
// configured.
package queue

import (
	"context"

	"flowforge/engine/pkg/types"
)

// Runner executes one accepted run request to a terminal state.
type Runner interface {
	Run(ctx context.Context, req types.RunRequest) error
}

// Queue accepts run requests and hands them to a Runner.
type Queue interface {
	// Enqueue accepts a run request for execution. Acceptance does not
	// imply the run has started, only that it will be dispatched.
	Enqueue(ctx context.Context, req types.RunRequest) error

	// Start begins dispatching accepted requests. It returns immediately;
	// workers run until Close.
	Start(ctx context.Context) error

	// Close stops dispatching and waits for in-flight runs to finish.
	Close() error
}
