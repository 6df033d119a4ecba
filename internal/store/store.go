package store

import (
	"context"
	"fmt"
	"time"

	"flowforge/engine/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = fmt.Errorf("record not found")

// WorkflowStore persists workflow definitions.
type WorkflowStore interface {
	// Get returns the definition with the given ID.
	Get(ctx context.Context, id string) (*types.Workflow, error)

	// List returns every stored definition.
	List(ctx context.Context) ([]*types.Workflow, error)

	// ListByTriggerType returns enabled definitions with the given trigger type.
	ListByTriggerType(ctx context.Context, trigger types.TriggerType) ([]*types.Workflow, error)

	// Save creates or replaces a definition.
	Save(ctx context.Context, wf *types.Workflow) error

	// Delete removes a definition.
	Delete(ctx context.Context, id string) error
}

// RunFilter narrows run listings.
type RunFilter struct {
	WorkflowID string
	Status     types.RunStatus
	Limit      int
}

// RunStore persists workflow run records.
type RunStore interface {
	// Create inserts a new run record.
	Create(ctx context.Context, run *types.Run) error

	// Update replaces the stored state of a run.
	Update(ctx context.Context, run *types.Run) error

	// Get returns the run with the given ID.
	Get(ctx context.Context, id string) (*types.Run, error)

	// List returns runs matching the filter, newest first.
	List(ctx context.Context, filter RunFilter) ([]*types.Run, error)
}

// WorkflowRecord is the persisted row form of a workflow definition.
type WorkflowRecord struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Version     string `gorm:"size:16"`
	TriggerType string `gorm:"index;size:32"`
	OwnerID     string `gorm:"index;size:64"`
	Definition  string `gorm:"type:text;not null"` // full JSON document
	Enabled     bool   `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName sets the workflows table name.
func (WorkflowRecord) TableName() string { return "workflows" }

// RunRecord is the persisted row form of a workflow run.
type RunRecord struct {
	ID           string `gorm:"primaryKey;size:64"`
	WorkflowID   string `gorm:"index;size:64;not null"`
	Status       string `gorm:"index;size:16;not null"`
	Trigger      string `gorm:"size:32"`
	StartedAt    time.Time
	CompletedAt  *time.Time
	Output       string `gorm:"type:text"` // JSON
	Steps        string `gorm:"type:text"` // JSON array of step results
	FailedStepID string `gorm:"size:64"`
	Error        string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName sets the runs table name.
func (RunRecord) TableName() string { return "workflow_runs" }
