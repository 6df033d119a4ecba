package types

import (
	"context"
	"fmt"
	"strings"
)

// Callable is the uniform capability every registered module function exposes.
// Implementations receive resolved step inputs and may block on network I/O;
// they must honor ctx cancellation.
type Callable func(ctx context.Context, input map[string]any) (any, error)

// Param describes one parameter of a module function.
type Param struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// ModuleDescriptor describes a registered callable. It is read-only once the
// registry index is built.
type ModuleDescriptor struct {
	Category    string  `json:"category"`
	Module      string  `json:"module"`
	Function    string  `json:"function"`
	Params      []Param `json:"params,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Path returns the callable address in category.module.function form.
func (d ModuleDescriptor) Path() string {
	return d.Category + "." + d.Module + "." + d.Function
}

// Signature renders the parameter list for documentation and search,
// marking optional parameters with a trailing question mark.
func (d ModuleDescriptor) Signature() string {
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		if p.Required {
			parts[i] = p.Name
		} else {
			parts[i] = p.Name + "?"
		}
	}
	return fmt.Sprintf("%s(%s)", d.Path(), strings.Join(parts, ", "))
}

// SplitModulePath splits a category.module.function address into its segments.
func SplitModulePath(path string) (category, module, function string, err error) {
	parts := strings.Split(path, ".")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("invalid module path: %q", path)
	}
	return parts[0], parts[1], parts[2], nil
}
