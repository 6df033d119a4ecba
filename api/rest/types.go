package rest

import "flowforge/engine/pkg/types"

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse reports process liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// TriggerRunRequest starts a run of a stored workflow.
type TriggerRunRequest struct {
	UserID  string         `json:"userId,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// TriggerRunResponse acknowledges an accepted run.
type TriggerRunResponse struct {
	RunID      string `json:"runId"`
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
}

// WorkflowListResponse lists stored workflow definitions.
type WorkflowListResponse struct {
	Workflows []*types.Workflow `json:"workflows"`
	Total     int               `json:"total"`
}

// RunListResponse lists run records.
type RunListResponse struct {
	Runs  []*types.Run `json:"runs"`
	Total int          `json:"total"`
}

// ModuleListResponse lists the registry catalog.
type ModuleListResponse struct {
	Modules []types.ModuleDescriptor `json:"modules"`
	Total   int                      `json:"total"`
}

// ResilienceResponse reports per-dependency breaker states.
type ResilienceResponse struct {
	Dependencies map[string]string `json:"dependencies"`
}
