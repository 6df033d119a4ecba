package types

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the state of a workflow run.
type RunStatus string

const (
	// RunStatusPending indicates the run has been accepted but not started.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates steps are executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusSuccess indicates every step completed.
	RunStatusSuccess RunStatus = "success"
	// RunStatusError indicates a step failed and the run was halted.
	RunStatusError RunStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusError
}

// StepResult records the outcome of one executed step.
// Results are appended to a run, never mutated afterwards.
type StepResult struct {
	StepID    string        `json:"step_id"`
	Success   bool          `json:"success"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Output    any           `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Run represents one workflow execution and its audit record.
type Run struct {
	ID          string       `json:"id"`
	WorkflowID  string       `json:"workflow_id"`
	Status      RunStatus    `json:"status"`
	Trigger     TriggerType  `json:"trigger"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Output      any          `json:"output,omitempty"`
	Steps       []StepResult `json:"steps"`

	// FailedStepID names the step that halted the run, when Status is error.
	FailedStepID string `json:"failed_step_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewRun creates a pending run for the given workflow.
func NewRun(workflowID string, trigger TriggerType) *Run {
	return &Run{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     RunStatusPending,
		Trigger:    trigger,
	}
}

// Start transitions the run to running. It is a no-op on a terminal run.
func (r *Run) Start() {
	if r.Status.Terminal() {
		return
	}
	r.Status = RunStatusRunning
	r.StartedAt = time.Now()
}

// Succeed marks the run successful with its final output.
// The terminal state is set exactly once; later transitions are ignored.
func (r *Run) Succeed(output any) {
	if r.Status.Terminal() {
		return
	}
	now := time.Now()
	r.Status = RunStatusSuccess
	r.Output = output
	r.CompletedAt = &now
}

// Fail marks the run failed, recording the offending step and message.
func (r *Run) Fail(stepID, message string) {
	if r.Status.Terminal() {
		return
	}
	now := time.Now()
	r.Status = RunStatusError
	r.FailedStepID = stepID
	r.Error = message
	r.CompletedAt = &now
}

// RunRequest is a dispatch request accepted by the workflow queue.
type RunRequest struct {
	RunID      string         `json:"run_id"`
	WorkflowID string         `json:"workflow_id"`
	UserID     string         `json:"user_id,omitempty"`
	Trigger    TriggerType    `json:"trigger"`
	Payload    map[string]any `json:"payload,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// NewRunRequest creates a run request with a fresh run ID.
func NewRunRequest(workflowID, userID string, trigger TriggerType, payload map[string]any) RunRequest {
	return RunRequest{
		RunID:      uuid.NewString(),
		WorkflowID: workflowID,
		UserID:     userID,
		Trigger:    trigger,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
}
