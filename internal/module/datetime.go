package module

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"flowforge/engine/internal/registry"
	"flowforge/engine/pkg/types"
)

// namedLayouts maps the format names workflow authors may use to Go layouts.
var namedLayouts = map[string]string{
	"rfc3339":  time.RFC3339,
	"date":     "2006-01-02",
	"time":     "15:04:05",
	"datetime": "2006-01-02 15:04:05",
}

// DatetimePack provides utilities.datetime.
func DatetimePack() registry.Pack {
	return registry.NewStaticPack("utilities", "datetime",
		registry.Function{
			Name:        "now",
			Description: "Current time, RFC3339 by default or in the given format",
			Params: []types.Param{
				{Name: "format", Description: "rfc3339, date, time, datetime, unix, or a Go layout"},
			},
			Handler: now,
		},
		registry.Function{
			Name:        "format",
			Description: "Reformat an RFC3339 or unix timestamp",
			Params: []types.Param{
				{Name: "value", Required: true, Description: "RFC3339 string or unix seconds"},
				{Name: "format", Description: "target format, defaults to rfc3339"},
			},
			Handler: formatTime,
		},
	)
}

func now(ctx context.Context, input map[string]any) (any, error) {
	return renderTime(time.Now().UTC(), optionalString(input, "format", "rfc3339"))
}

func formatTime(ctx context.Context, input map[string]any) (any, error) {
	raw, err := stringInput(input, "value")
	if err != nil {
		return nil, err
	}
	t, err := parseTime(raw)
	if err != nil {
		return nil, err
	}
	return renderTime(t, optionalString(input, "format", "rfc3339"))
}

func renderTime(t time.Time, format string) (any, error) {
	if format == "unix" {
		return t.Unix(), nil
	}
	if layout, ok := namedLayouts[format]; ok {
		return t.Format(layout), nil
	}
	return t.Format(format), nil
}

func parseTime(raw string) (time.Time, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
	}
	return t, nil
}
