package types

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// DefinitionVersion is the workflow document version this engine accepts.
const DefinitionVersion = "1.0"

// modulePathPattern validates step module paths (category.module.function).
var modulePathPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*\.[a-z][a-z0-9-]*\.[a-z][a-zA-Z0-9]*$`)

// outputNamePattern validates output variable names.
var outputNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Workflow represents a workflow definition.
// A definition is immutable once a run starts; execution never mutates it.
type Workflow struct {
	ID          string         `json:"id"`
	Version     string         `json:"version"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Trigger     Trigger        `json:"trigger"`
	Config      WorkflowConfig `json:"config"`
	Enabled     bool           `json:"enabled"`

	// OwnerID identifies the user whose credentials runs of this
	// workflow resolve against.
	OwnerID string `json:"ownerId,omitempty"`
}

// WorkflowConfig holds the executable part of a workflow definition.
type WorkflowConfig struct {
	Steps []Step `json:"steps"`

	// ReturnValue names the context variable to use as the run output.
	// When empty the last step's output is returned.
	ReturnValue string `json:"returnValue,omitempty"`

	// OutputDisplay is a UI hint for rendering the run output.
	OutputDisplay string `json:"outputDisplay,omitempty"`
}

// Step represents a single invocation of a registered module function.
type Step struct {
	ID string `json:"id"`

	// Module is the callable address in category.module.function form.
	Module string `json:"module"`

	// Inputs maps parameter names to literal values or template strings.
	Inputs map[string]any `json:"inputs,omitempty"`

	// OutputAs names the context variable that receives the step output.
	OutputAs string `json:"outputAs,omitempty"`
}

// ParseWorkflow parses and validates a persisted workflow definition document.
func ParseWorkflow(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition: %w", err)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Validate performs static validation of the definition: version envelope,
// module path and output name syntax, step ID uniqueness and duplicate
// output variable detection. Registry resolution is a separate concern.
func (w *Workflow) Validate() error {
	if w.Version != "" && w.Version != DefinitionVersion {
		return NewValidationError("", fmt.Sprintf("unsupported definition version: %s", w.Version))
	}
	if w.Name == "" {
		return NewValidationError("", "workflow name is required")
	}
	if err := w.Trigger.Validate(); err != nil {
		return err
	}
	if len(w.Config.Steps) == 0 {
		return NewValidationError("", "workflow must contain at least one step")
	}

	stepIDs := make(map[string]struct{}, len(w.Config.Steps))
	outputs := make(map[string]string, len(w.Config.Steps))
	for _, step := range w.Config.Steps {
		if step.ID == "" {
			return NewValidationError("", "step id is required")
		}
		if _, exists := stepIDs[step.ID]; exists {
			return NewValidationError(step.ID, "duplicate step id")
		}
		stepIDs[step.ID] = struct{}{}

		if !modulePathPattern.MatchString(step.Module) {
			return NewValidationError(step.ID, fmt.Sprintf("invalid module path: %q", step.Module))
		}
		if step.OutputAs != "" {
			if !outputNamePattern.MatchString(step.OutputAs) {
				return NewValidationError(step.ID, fmt.Sprintf("invalid output variable name: %q", step.OutputAs))
			}
			if prev, exists := outputs[step.OutputAs]; exists {
				return NewValidationError(step.ID,
					fmt.Sprintf("output variable %q already bound by step %q", step.OutputAs, prev))
			}
			outputs[step.OutputAs] = step.ID
		}
	}

	if w.Config.ReturnValue != "" && !outputNamePattern.MatchString(w.Config.ReturnValue) {
		return NewValidationError("", fmt.Sprintf("invalid returnValue name: %q", w.Config.ReturnValue))
	}
	return nil
}

// IsValidModulePath reports whether path is a well-formed module address.
func IsValidModulePath(path string) bool {
	return modulePathPattern.MatchString(path)
}
