package module

import (
	"context"
	"strings"

	"flowforge/engine/internal/registry"
	"flowforge/engine/pkg/types"
)

// StringUtilsPack provides utilities.string-utils.
func StringUtilsPack() registry.Pack {
	textParam := types.Param{Name: "text", Required: true, Description: "input text"}
	return registry.NewStaticPack("utilities", "string-utils",
		registry.Function{
			Name:        "upper",
			Description: "Uppercase the text",
			Params:      []types.Param{textParam},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				text, err := stringInput(input, "text")
				if err != nil {
					return nil, err
				}
				return strings.ToUpper(text), nil
			},
		},
		registry.Function{
			Name:        "lower",
			Description: "Lowercase the text",
			Params:      []types.Param{textParam},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				text, err := stringInput(input, "text")
				if err != nil {
					return nil, err
				}
				return strings.ToLower(text), nil
			},
		},
		registry.Function{
			Name:        "trim",
			Description: "Strip leading and trailing whitespace",
			Params:      []types.Param{textParam},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				text, err := stringInput(input, "text")
				if err != nil {
					return nil, err
				}
				return strings.TrimSpace(text), nil
			},
		},
		registry.Function{
			Name:        "replace",
			Description: "Replace every occurrence of a substring",
			Params: []types.Param{
				textParam,
				{Name: "old", Required: true, Description: "substring to replace"},
				{Name: "new", Description: "replacement, defaults to empty"},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				text, err := stringInput(input, "text")
				if err != nil {
					return nil, err
				}
				old, err := stringInput(input, "old")
				if err != nil {
					return nil, err
				}
				return strings.ReplaceAll(text, old, optionalString(input, "new", "")), nil
			},
		},
		registry.Function{
			Name:        "split",
			Description: "Split the text on a separator",
			Params: []types.Param{
				textParam,
				{Name: "separator", Description: "defaults to comma"},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				text, err := stringInput(input, "text")
				if err != nil {
					return nil, err
				}
				parts := strings.Split(text, optionalString(input, "separator", ","))
				out := make([]any, len(parts))
				for i, p := range parts {
					out[i] = strings.TrimSpace(p)
				}
				return out, nil
			},
		},
	)
}
