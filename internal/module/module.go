// Package module provides the builtin packs registered with every engine
// instance: date/time helpers, string utilities, JSON codecs, and the
// resilience-guarded HTTP callables.
package module

import (
	"net/http"
	"time"

	"flowforge/engine/internal/registry"
	"flowforge/engine/internal/resilience"
)

// defaultHTTPTimeout bounds builtin HTTP calls when the caller supplies no
// client of its own. The resilience guard's per-call timeout still applies on
// top of this.
const defaultHTTPTimeout = 30 * time.Second

// Builtin returns the stock packs. guards protects the outbound HTTP
// callables per target host; client may be nil.
func Builtin(guards *resilience.Manager, client *http.Client) []registry.Pack {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return []registry.Pack{
		DatetimePack(),
		StringUtilsPack(),
		JSONPack(),
		HTTPPack(guards, client),
		WebhookPack(guards, client),
	}
}
