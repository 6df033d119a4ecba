package registry

import (
	"fmt"
	"strings"
)

// NotFoundError reports a module path that does not resolve in the index.
// It carries fuzzy suggestions so the error message can point the workflow
// author at likely intended modules.
type NotFoundError struct {
	Path        string
	Suggestions []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("module not found: %s", e.Path)
	}
	return fmt.Sprintf("module not found: %s (did you mean %s?)",
		e.Path, strings.Join(e.Suggestions, ", "))
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(path string, suggestions []string) *NotFoundError {
	return &NotFoundError{Path: path, Suggestions: suggestions}
}

// IsNotFound checks whether err is a registry lookup miss.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}
