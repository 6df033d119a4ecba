package module

import (
	"fmt"

	"github.com/duke-git/lancet/v2/convertor"
)

// stringInput reads a required string parameter.
func stringInput(input map[string]any, key string) (string, error) {
	v, ok := input[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return convertor.ToString(v), nil
}

// optionalString reads an optional string parameter, returning fallback when
// absent.
func optionalString(input map[string]any, key, fallback string) string {
	v, ok := input[key]
	if !ok || v == nil {
		return fallback
	}
	return convertor.ToString(v)
}
