package types

import "fmt"

// ValidationError reports a definition-level problem detected before execution.
type ValidationError struct {
	StepID  string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step %s: %s", e.StepID, e.Message)
	}
	return e.Message
}

// NewValidationError creates a ValidationError for the given step.
// StepID may be empty for workflow-level problems.
func NewValidationError(stepID, message string) *ValidationError {
	return &ValidationError{StepID: stepID, Message: message}
}

// IsValidationError checks whether err is a definition validation error.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
