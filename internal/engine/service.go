package engine

import (
	"context"
	"fmt"

	"flowforge/engine/internal/store"
	"flowforge/engine/pkg/types"
)

// Service resolves a run request to its workflow definition and executes it.
// It is the execution entry point handed to the queue's workers.
type Service struct {
	workflows store.WorkflowStore
	engine    *Engine
}

// NewService creates a Service.
func NewService(workflows store.WorkflowStore, engine *Engine) *Service {
	return &Service{workflows: workflows, engine: engine}
}

// Run loads the requested workflow and executes it to a terminal state.
func (s *Service) Run(ctx context.Context, req types.RunRequest) error {
	wf, err := s.workflows.Get(ctx, req.WorkflowID)
	if err != nil {
		return fmt.Errorf("unknown workflow %s: %w", req.WorkflowID, err)
	}
	_, err = s.engine.Execute(ctx, wf, req)
	return err
}
