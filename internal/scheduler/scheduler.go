// Package scheduler enqueues runs for cron-triggered workflows at the right
// times. It keeps its own next-fire bookkeeping instead of registering timers
// per workflow, which makes re-initialisation after a restart or definition
// reload idempotent: rebuilding the entry table can never leave a duplicate
// timer behind.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"flowforge/engine/internal/queue"
	"flowforge/engine/internal/store"
	"flowforge/engine/pkg/types"
)

// DefaultTickInterval is how often due entries are checked.
const DefaultTickInterval = time.Second

// parser accepts standard 5-field cron expressions, matching the syntax a
// workflow's cron trigger is validated against.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// entry tracks one scheduled workflow.
type entry struct {
	workflow *types.Workflow
	schedule cron.Schedule
	nextFire time.Time
}

// Scheduler drives cron-triggered workflows. It loads scheduled definitions
// on Init, then on every tick enqueues each workflow whose next-fire time has
// passed and recomputes its next one.
type Scheduler struct {
	workflows store.WorkflowStore
	queue     queue.Queue
	tick      time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry // workflow ID -> schedule state
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// now is swappable for tests.
	now func() time.Time
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithTickInterval overrides the tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

// New creates a Scheduler. Init must be called before Start.
func New(workflows store.WorkflowStore, q queue.Queue, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		workflows: workflows,
		queue:     q,
		tick:      DefaultTickInterval,
		logger:    logger,
		entries:   make(map[string]*entry),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads every enabled cron-triggered workflow and computes its next-fire
// time. Init is idempotent: calling it again rebuilds the entry table from
// the store, preserving the pending next-fire time of workflows whose
// expression has not changed so a reload never fires a workflow twice.
func (s *Scheduler) Init(ctx context.Context) error {
	wfs, err := s.workflows.ListByTriggerType(ctx, types.TriggerCron)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[string]*entry, len(wfs))
	now := s.now()
	for _, wf := range wfs {
		if wf.Trigger.Cron == nil {
			continue
		}
		schedule, err := parser.Parse(wf.Trigger.Cron.Expression)
		if err != nil {
			// Validation should have caught this; skip rather than
			// block the rest of the schedule.
			s.logger.Warn("skipping workflow with bad cron expression",
				zap.String("workflow_id", wf.ID),
				zap.String("expression", wf.Trigger.Cron.Expression),
				zap.Error(err))
			continue
		}

		e := &entry{workflow: wf, schedule: schedule, nextFire: schedule.Next(now)}
		if prev, ok := s.entries[wf.ID]; ok && sameExpression(prev.workflow, wf) {
			e.nextFire = prev.nextFire
		}
		fresh[wf.ID] = e
	}
	s.entries = fresh

	s.logger.Info("scheduler initialised", zap.Int("scheduled_workflows", len(fresh)))
	return nil
}

// Start launches the tick loop. Starting a started scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go s.loop(loopCtx)
}

// Close stops the tick loop.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick enqueues every workflow whose next-fire time has passed and advances
// its schedule. Exported so a caller driving its own clock can call it
// directly.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if !e.nextFire.After(now) {
			due = append(due, e)
			e.nextFire = e.schedule.Next(now)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		wf := e.workflow
		req := types.NewRunRequest(wf.ID, wf.OwnerID, types.TriggerCron, nil)
		if err := s.queue.Enqueue(ctx, req); err != nil {
			s.logger.Error("failed to enqueue scheduled run",
				zap.String("workflow_id", wf.ID), zap.Error(err))
			continue
		}
		s.logger.Info("scheduled run enqueued",
			zap.String("workflow_id", wf.ID),
			zap.String("run_id", req.RunID),
			zap.Time("next_fire", e.nextFire))
	}
}

// NextFire reports the pending fire time for a workflow, if scheduled.
func (s *Scheduler) NextFire(workflowID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[workflowID]
	if !ok {
		return time.Time{}, false
	}
	return e.nextFire, true
}

// Count reports how many workflows are currently scheduled.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func sameExpression(a, b *types.Workflow) bool {
	return a.Trigger.Cron != nil && b.Trigger.Cron != nil &&
		a.Trigger.Cron.Expression == b.Trigger.Cron.Expression
}
