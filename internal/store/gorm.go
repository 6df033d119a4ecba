package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"flowforge/engine/pkg/types"
)

// GormWorkflowStore persists workflow definitions in a relational database.
type GormWorkflowStore struct {
	db *gorm.DB
}

// NewGormWorkflowStore creates a WorkflowStore over db.
func NewGormWorkflowStore(db *gorm.DB) *GormWorkflowStore {
	return &GormWorkflowStore{db: db}
}

// Get implements WorkflowStore.
func (s *GormWorkflowStore) Get(ctx context.Context, id string) (*types.Workflow, error) {
	var rec WorkflowRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeWorkflow(&rec)
}

// List implements WorkflowStore.
func (s *GormWorkflowStore) List(ctx context.Context) ([]*types.Workflow, error) {
	var recs []WorkflowRecord
	if err := s.db.WithContext(ctx).Order("created_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	return decodeWorkflows(recs)
}

// ListByTriggerType implements WorkflowStore.
func (s *GormWorkflowStore) ListByTriggerType(ctx context.Context, trigger types.TriggerType) ([]*types.Workflow, error) {
	var recs []WorkflowRecord
	err := s.db.WithContext(ctx).
		Where("trigger_type = ? AND enabled = ?", string(trigger), true).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return decodeWorkflows(recs)
}

// Save implements WorkflowStore.
func (s *GormWorkflowStore) Save(ctx context.Context, wf *types.Workflow) error {
	doc, err := sonic.MarshalString(wf)
	if err != nil {
		return fmt.Errorf("failed to encode workflow definition: %w", err)
	}
	rec := WorkflowRecord{
		ID:          wf.ID,
		Name:        wf.Name,
		Description: wf.Description,
		Version:     wf.Version,
		TriggerType: string(wf.Trigger.Type),
		OwnerID:     wf.OwnerID,
		Definition:  doc,
		Enabled:     wf.Enabled,
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// Delete implements WorkflowStore.
func (s *GormWorkflowStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&WorkflowRecord{}, "id = ?", id).Error
}

func decodeWorkflow(rec *WorkflowRecord) (*types.Workflow, error) {
	var wf types.Workflow
	if err := sonic.UnmarshalString(rec.Definition, &wf); err != nil {
		return nil, fmt.Errorf("corrupt workflow definition %s: %w", rec.ID, err)
	}
	return &wf, nil
}

func decodeWorkflows(recs []WorkflowRecord) ([]*types.Workflow, error) {
	out := make([]*types.Workflow, 0, len(recs))
	for i := range recs {
		wf, err := decodeWorkflow(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, nil
}

// GormRunStore persists run records in a relational database.
type GormRunStore struct {
	db *gorm.DB
}

// NewGormRunStore creates a RunStore over db.
func NewGormRunStore(db *gorm.DB) *GormRunStore {
	return &GormRunStore{db: db}
}

// Create implements RunStore.
func (s *GormRunStore) Create(ctx context.Context, run *types.Run) error {
	rec, err := encodeRun(run)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// Update implements RunStore.
func (s *GormRunStore) Update(ctx context.Context, run *types.Run) error {
	rec, err := encodeRun(run)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(rec).Error
}

// Get implements RunStore.
func (s *GormRunStore) Get(ctx context.Context, id string) (*types.Run, error) {
	var rec RunRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeRun(&rec)
}

// List implements RunStore.
func (s *GormRunStore) List(ctx context.Context, filter RunFilter) ([]*types.Run, error) {
	q := s.db.WithContext(ctx).Model(&RunRecord{}).Order("created_at DESC")
	if filter.WorkflowID != "" {
		q = q.Where("workflow_id = ?", filter.WorkflowID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []RunRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*types.Run, 0, len(recs))
	for i := range recs {
		run, err := decodeRun(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func encodeRun(run *types.Run) (*RunRecord, error) {
	output, err := sonic.MarshalString(run.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run output: %w", err)
	}
	steps, err := sonic.MarshalString(run.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step results: %w", err)
	}
	return &RunRecord{
		ID:           run.ID,
		WorkflowID:   run.WorkflowID,
		Status:       string(run.Status),
		Trigger:      string(run.Trigger),
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
		Output:       output,
		Steps:        steps,
		FailedStepID: run.FailedStepID,
		Error:        run.Error,
	}, nil
}

func decodeRun(rec *RunRecord) (*types.Run, error) {
	run := &types.Run{
		ID:           rec.ID,
		WorkflowID:   rec.WorkflowID,
		Status:       types.RunStatus(rec.Status),
		Trigger:      types.TriggerType(rec.Trigger),
		StartedAt:    rec.StartedAt,
		CompletedAt:  rec.CompletedAt,
		FailedStepID: rec.FailedStepID,
		Error:        rec.Error,
	}
	if rec.Output != "" {
		if err := sonic.UnmarshalString(rec.Output, &run.Output); err != nil {
			return nil, fmt.Errorf("corrupt run output %s: %w", rec.ID, err)
		}
	}
	if rec.Steps != "" {
		if err := sonic.UnmarshalString(rec.Steps, &run.Steps); err != nil {
			return nil, fmt.Errorf("corrupt step results %s: %w", rec.ID, err)
		}
	}
	return run, nil
}
