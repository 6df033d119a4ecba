package store

import (
	"context"
	"sort"
	"sync"

	"flowforge/engine/pkg/types"
)

// MemoryWorkflowStore is an in-process WorkflowStore for development and tests.
type MemoryWorkflowStore struct {
	mu        sync.RWMutex
	workflows map[string]*types.Workflow
	order     []string
}

// NewMemoryWorkflowStore creates an empty in-memory workflow store.
func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{workflows: make(map[string]*types.Workflow)}
}

// Get implements WorkflowStore.
func (s *MemoryWorkflowStore) Get(ctx context.Context, id string) (*types.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return wf, nil
}

// List implements WorkflowStore.
func (s *MemoryWorkflowStore) List(ctx context.Context) ([]*types.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Workflow, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.workflows[id])
	}
	return out, nil
}

// ListByTriggerType implements WorkflowStore.
func (s *MemoryWorkflowStore) ListByTriggerType(ctx context.Context, trigger types.TriggerType) ([]*types.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Workflow
	for _, id := range s.order {
		wf := s.workflows[id]
		if wf.Enabled && wf.Trigger.Type == trigger {
			out = append(out, wf)
		}
	}
	return out, nil
}

// Save implements WorkflowStore.
func (s *MemoryWorkflowStore) Save(ctx context.Context, wf *types.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workflows[wf.ID]; !exists {
		s.order = append(s.order, wf.ID)
	}
	s.workflows[wf.ID] = wf
	return nil
}

// Delete implements WorkflowStore.
func (s *MemoryWorkflowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// MemoryRunStore is an in-process RunStore for development and tests.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*types.Run
	seq  []string
}

// NewMemoryRunStore creates an empty in-memory run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*types.Run)}
}

// Create implements RunStore.
func (s *MemoryRunStore) Create(ctx context.Context, run *types.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *run
	s.runs[run.ID] = &copied
	s.seq = append(s.seq, run.ID)
	return nil
}

// Update implements RunStore.
func (s *MemoryRunStore) Update(ctx context.Context, run *types.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

// Get implements RunStore.
func (s *MemoryRunStore) Get(ctx context.Context, id string) (*types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *run
	return &copied, nil
}

// List implements RunStore.
func (s *MemoryRunStore) List(ctx context.Context, filter RunFilter) ([]*types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Run
	for _, id := range s.seq {
		run := s.runs[id]
		if filter.WorkflowID != "" && run.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		copied := *run
		out = append(out, &copied)
	}

	// Newest first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
