// Package registry indexes the module functions addressable from workflow steps.
package registry

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"flowforge/engine/pkg/types"
)

// Entry is one resolved callable with its descriptor.
type Entry struct {
	Descriptor types.ModuleDescriptor
	Callable   types.Callable
}

// Registry resolves category.module.function paths to callables. The index is
// built eagerly from packs and is read-mostly afterwards; rebuilds are rare,
// coarse-grained events (process restart or explicit reload).
type Registry struct {
	mu     sync.RWMutex
	index  map[string]*Entry
	failed map[string]string // pack path -> load error message
	logger *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		index:  make(map[string]*Entry),
		failed: make(map[string]string),
		logger: logger,
	}
}

// Build indexes the given packs. A pack that fails to load is recorded and
// skipped; Build never fails as a whole and the registry always becomes ready.
func (r *Registry) Build(packs ...Pack) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pack := range packs {
		prefix := pack.Category() + "." + pack.Module()
		funcs, err := pack.Functions()
		if err != nil {
			r.failed[prefix] = err.Error()
			r.logger.Warn("module pack failed to load, skipping",
				zap.String("module", prefix), zap.Error(err))
			continue
		}
		for _, fn := range funcs {
			entry := &Entry{
				Descriptor: types.ModuleDescriptor{
					Category:    pack.Category(),
					Module:      pack.Module(),
					Function:    fn.Name,
					Params:      fn.Params,
					Description: fn.Description,
				},
				Callable: fn.Handler,
			}
			r.index[entry.Descriptor.Path()] = entry
		}
	}

	r.logger.Info("module registry built",
		zap.Int("functions", len(r.index)), zap.Int("failed_packs", len(r.failed)))
}

// Reset clears the index so Build can be called again (explicit reload).
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = make(map[string]*Entry)
	r.failed = make(map[string]string)
}

// Resolve looks up the callable registered at path. A miss returns a
// *NotFoundError carrying fuzzy suggestions for the author.
func (r *Registry) Resolve(path string) (*Entry, error) {
	r.mu.RLock()
	entry, ok := r.index[path]
	r.mu.RUnlock()

	if !ok {
		return nil, NewNotFoundError(path, r.Suggest(path))
	}
	return entry, nil
}

// Has reports whether path resolves.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[path]
	return ok
}

// List returns every descriptor, sorted by path.
func (r *Registry) List() []types.ModuleDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ModuleDescriptor, 0, len(r.index))
	for _, entry := range r.index {
		out = append(out, entry.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}

// Count returns the number of indexed functions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}

// FailedPacks returns the packs that did not load, keyed by category.module.
func (r *Registry) FailedPacks() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.failed))
	for k, v := range r.failed {
		out[k] = v
	}
	return out
}

// ValidateWorkflow checks that every step's module path resolves, returning a
// definition error naming the first offending step.
func (r *Registry) ValidateWorkflow(wf *types.Workflow) error {
	for _, step := range wf.Config.Steps {
		if !r.Has(step.Module) {
			return types.NewValidationError(step.ID, "unknown module: "+step.Module)
		}
	}
	return nil
}

// Search returns descriptors matching query: substring matches over path and
// description first, fuzzy suggestions when nothing matches directly.
func (r *Registry) Search(query string) []types.ModuleDescriptor {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return r.List()
	}

	r.mu.RLock()
	var direct []types.ModuleDescriptor
	for _, entry := range r.index {
		hay := strings.ToLower(entry.Descriptor.Path() + " " + entry.Descriptor.Description)
		if strings.Contains(hay, query) {
			direct = append(direct, entry.Descriptor)
		}
	}
	r.mu.RUnlock()

	if len(direct) > 0 {
		sort.Slice(direct, func(i, j int) bool { return direct[i].Path() < direct[j].Path() })
		return direct
	}

	var fuzzy []types.ModuleDescriptor
	for _, path := range r.Suggest(query) {
		if entry, err := r.Resolve(path); err == nil {
			fuzzy = append(fuzzy, entry.Descriptor)
		}
	}
	return fuzzy
}
