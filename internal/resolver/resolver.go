// Package resolver implements template substitution over a run context.
package resolver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// credentialNamespace is the context namespace holding resolved secrets.
const credentialNamespace = "credential"

// markerPattern matches template markers like {{var}} or {{object.path.value}}.
var markerPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Resolver substitutes {{path.to.value}} markers against a context tree.
// A marker whose path is absent from the context is left untouched so a
// downstream step still receives a recognizable unresolved token.
// Safe for concurrent use.
type Resolver struct {
	// aliases maps historical credential platform names to canonical ones.
	aliases map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCredentialAliases installs the alias table consulted for
// credential.<platform> paths. Keys are aliases, values canonical names.
func WithCredentialAliases(aliases map[string]string) Option {
	return func(r *Resolver) {
		for alias, canonical := range aliases {
			r.aliases[strings.ToLower(alias)] = canonical
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{aliases: make(map[string]string)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveString substitutes every marker in s against ctx in one left-to-right
// pass. Markers with undefined paths are kept verbatim.
func (r *Resolver) ResolveString(s string, ctx map[string]any) string {
	if s == "" || !strings.Contains(s, "{{") {
		return s
	}

	return markerPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := r.Lookup(path, ctx)
		if !ok {
			return match
		}
		return stringify(value)
	})
}

// ResolveValue deep-resolves a value: strings get marker substitution, maps and
// slices are resolved recursively, scalars pass through. A string consisting of
// exactly one marker resolves to the referenced value itself so step outputs
// keep their type when forwarded whole.
func (r *Resolver) ResolveValue(v any, ctx map[string]any) any {
	switch val := v.(type) {
	case string:
		if path, ok := wholeMarker(val); ok {
			if resolved, found := r.Lookup(path, ctx); found {
				return resolved
			}
			return val
		}
		return r.ResolveString(val, ctx)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.ResolveValue(item, ctx)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.ResolveValue(item, ctx)
		}
		return out
	default:
		return v
	}
}

// ResolveInputs resolves a step input mapping against ctx.
func (r *Resolver) ResolveInputs(inputs map[string]any, ctx map[string]any) map[string]any {
	if inputs == nil {
		return map[string]any{}
	}
	resolved := r.ResolveValue(inputs, ctx)
	return resolved.(map[string]any)
}

// Lookup walks a dotted path against the context tree. Map keys and numeric
// list indices are supported segments. The second return reports whether the
// full path resolved.
func (r *Resolver) Lookup(path string, ctx map[string]any) (any, bool) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 || parts[0] == "" {
		return nil, false
	}

	// credential.<platform> paths go through the alias table.
	if parts[0] == credentialNamespace && len(parts) >= 2 {
		parts[1] = r.CanonicalPlatform(parts[1])
	}

	var current any = ctx
	for _, segment := range parts {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// ExtractRefs returns every marker path referenced anywhere in v, in
// encounter order, without duplicates.
func (r *Resolver) ExtractRefs(v any) []string {
	var refs []string
	seen := make(map[string]struct{})

	var walk func(any)
	walk = func(node any) {
		switch val := node.(type) {
		case string:
			for _, match := range markerPattern.FindAllStringSubmatch(val, -1) {
				path := strings.TrimSpace(match[1])
				if _, dup := seen[path]; !dup {
					seen[path] = struct{}{}
					refs = append(refs, path)
				}
			}
		case map[string]any:
			for _, item := range val {
				walk(item)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(v)
	return refs
}

// CanonicalPlatform maps a credential platform alias to its canonical name.
// Unknown names are returned unchanged.
func (r *Resolver) CanonicalPlatform(name string) string {
	if canonical, ok := r.aliases[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// HasMarkers reports whether s contains template markers.
func HasMarkers(s string) bool {
	return markerPattern.MatchString(s)
}

// wholeMarker reports whether s is exactly one marker, returning its path.
func wholeMarker(s string) (string, bool) {
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}
	inner := s[2 : len(s)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") || strings.Contains(inner, "}") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
