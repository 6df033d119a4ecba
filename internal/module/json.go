package module

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"flowforge/engine/internal/registry"
	"flowforge/engine/pkg/types"
)

// JSONPack provides utilities.json.
func JSONPack() registry.Pack {
	return registry.NewStaticPack("utilities", "json",
		registry.Function{
			Name:        "parse",
			Description: "Parse a JSON document into a structured value",
			Params: []types.Param{
				{Name: "text", Required: true, Description: "JSON document"},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				text, err := stringInput(input, "text")
				if err != nil {
					return nil, err
				}
				var v any
				if err := sonic.UnmarshalString(text, &v); err != nil {
					return nil, fmt.Errorf("invalid JSON: %w", err)
				}
				return v, nil
			},
		},
		registry.Function{
			Name:        "stringify",
			Description: "Encode a value as a JSON document",
			Params: []types.Param{
				{Name: "value", Required: true, Description: "value to encode"},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				v, ok := input["value"]
				if !ok {
					return nil, fmt.Errorf("missing required parameter %q", "value")
				}
				return sonic.MarshalString(v)
			},
		},
	)
}
