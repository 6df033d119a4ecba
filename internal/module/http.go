package module

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"flowforge/engine/internal/registry"
	"flowforge/engine/internal/resilience"
	"flowforge/engine/pkg/types"
)

// maxResponseBytes caps how much of a vendor response a step will buffer.
const maxResponseBytes = 4 << 20

// HTTPPack provides http.request: plain outbound calls protected per target
// host by the resilience guards, so one failing vendor never trips another
// vendor's breaker.
func HTTPPack(guards *resilience.Manager, client *http.Client) registry.Pack {
	urlParam := types.Param{Name: "url", Required: true, Description: "target URL"}
	headersParam := types.Param{Name: "headers", Description: "header name to value map"}

	return registry.NewStaticPack("http", "request",
		registry.Function{
			Name:        "get",
			Description: "HTTP GET returning status, headers and decoded body",
			Params:      []types.Param{urlParam, headersParam},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				return doRequest(ctx, guards, client, http.MethodGet, input)
			},
		},
		registry.Function{
			Name:        "post",
			Description: "HTTP POST with a JSON body returning status, headers and decoded body",
			Params: []types.Param{
				urlParam,
				{Name: "body", Description: "request body, JSON-encoded unless a string"},
				headersParam,
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				return doRequest(ctx, guards, client, http.MethodPost, input)
			},
		},
	)
}

// WebhookPack provides communication.webhook: a fire-and-report JSON POST to
// a caller-supplied endpoint.
func WebhookPack(guards *resilience.Manager, client *http.Client) registry.Pack {
	return registry.NewStaticPack("communication", "webhook",
		registry.Function{
			Name:        "send",
			Description: "POST a JSON payload to a webhook URL",
			Params: []types.Param{
				{Name: "url", Required: true, Description: "webhook URL"},
				{Name: "payload", Description: "JSON payload to deliver"},
			},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				req := map[string]any{"url": input["url"], "body": input["payload"]}
				return doRequest(ctx, guards, client, http.MethodPost, req)
			},
		},
	)
}

func doRequest(ctx context.Context, guards *resilience.Manager, client *http.Client, method string, input map[string]any) (any, error) {
	rawURL, err := stringInput(input, "url")
	if err != nil {
		return nil, err
	}
	target, err := url.Parse(rawURL)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}

	// The guard key is the host, so runs hitting the same vendor share a
	// breaker and limiter regardless of which workflow they belong to.
	return guards.Guard(target.Host).Do(ctx, func(ctx context.Context) (any, error) {
		body, contentType, err := encodeBody(input["body"])
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if headers, ok := input["headers"].(map[string]any); ok {
			for name, value := range headers {
				req.Header.Set(name, fmt.Sprint(value))
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			// Surfacing 5xx as an error is what feeds the breaker.
			return nil, fmt.Errorf("%s %s: upstream returned %d", method, target.Host, resp.StatusCode)
		}

		return map[string]any{
			"status":  resp.StatusCode,
			"headers": flattenHeaders(resp.Header),
			"body":    decodeBody(resp.Header.Get("Content-Type"), raw),
		}, nil
	})
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(v), "text/plain; charset=utf-8", nil
	default:
		encoded, err := sonic.MarshalString(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return strings.NewReader(encoded), "application/json", nil
	}
}

func decodeBody(contentType string, raw []byte) any {
	if strings.Contains(contentType, "application/json") {
		var v any
		if err := sonic.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

func flattenHeaders(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for name := range h {
		out[name] = h.Get(name)
	}
	return out
}
