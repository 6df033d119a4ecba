package registry

import "flowforge/engine/pkg/types"

// Function pairs a callable with its descriptor metadata inside a pack.
type Function struct {
	Name        string
	Description string
	Params      []types.Param
	Handler     types.Callable
}

// Pack groups the functions of one module (category.module) for registration.
// Packs are the unit of index building: a pack that fails to load is skipped
// without affecting the rest of the registry.
type Pack interface {
	// Category returns the pack's category segment (e.g. "utilities").
	Category() string

	// Module returns the pack's module segment (e.g. "string-utils").
	Module() string

	// Functions enumerates the callables the pack exports. An error marks the
	// whole pack as failed to load.
	Functions() ([]Function, error)
}

// StaticPack is a Pack backed by a fixed function list.
type StaticPack struct {
	category string
	module   string
	funcs    []Function
}

// NewStaticPack creates a pack from a fixed set of functions.
func NewStaticPack(category, module string, funcs ...Function) *StaticPack {
	return &StaticPack{category: category, module: module, funcs: funcs}
}

// Category returns the pack category.
func (p *StaticPack) Category() string { return p.category }

// Module returns the pack module name.
func (p *StaticPack) Module() string { return p.module }

// Functions returns the pack's function list.
func (p *StaticPack) Functions() ([]Function, error) { return p.funcs, nil }
