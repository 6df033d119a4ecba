// Package pipeline provides a standalone step-chaining primitive: named
// steps threaded in order over a shared context, with stop-on-error or
// continue-on-error policies and per-step timing.
package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Context is the data environment threaded through pipeline steps.
type Context map[string]any

// Clone returns a shallow copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// StepFunc transforms a context. Returning an error fails the step; the
// returned context of a failed step is discarded.
type StepFunc func(ctx context.Context, data Context) (Context, error)

// StepRecord captures the observed execution of one step.
type StepRecord struct {
	Name     string
	Success  bool
	Skipped  bool
	Duration time.Duration
	Error    string
}

// Result is the outcome of a pipeline execution. Success is true iff every
// executed step succeeded and none were skipped by a prior failure.
type Result struct {
	Success bool
	Data    Context
	Steps   []StepRecord
}

// Options controls execution policy.
type Options struct {
	// ContinueOnError runs every step regardless of prior failures. A failed
	// step's context mutations are still discarded.
	ContinueOnError bool
}

type namedStep struct {
	name string
	fn   StepFunc
}

// Pipeline runs named steps strictly in registration order.
type Pipeline struct {
	steps []namedStep
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Step appends a named step. Returns the pipeline for chaining.
func (p *Pipeline) Step(name string, fn StepFunc) *Pipeline {
	p.steps = append(p.steps, namedStep{name: name, fn: fn})
	return p
}

// Len returns the number of registered steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Execute runs the pipeline over an initial context. The default policy stops
// at the first failing step; the remaining steps are recorded as skipped.
// ContinueOnError runs every step. An empty pipeline succeeds and returns the
// initial context unchanged. A panicking step is recorded as failed with the
// panic value's string form.
func (p *Pipeline) Execute(ctx context.Context, initial Context, opts Options) *Result {
	result := &Result{
		Success: true,
		Data:    initial,
		Steps:   make([]StepRecord, 0, len(p.steps)),
	}
	if result.Data == nil {
		result.Data = Context{}
	}

	failed := false
	for _, step := range p.steps {
		if failed && !opts.ContinueOnError {
			result.Steps = append(result.Steps, StepRecord{Name: step.name, Skipped: true})
			continue
		}

		start := time.Now()
		// Each step works on a copy so a failed step's in-place mutations
		// never leak into the surviving context.
		next, err := runStep(ctx, step.fn, result.Data.Clone())
		record := StepRecord{
			Name:     step.name,
			Success:  err == nil,
			Duration: time.Since(start),
		}
		if err != nil {
			record.Error = err.Error()
			failed = true
		} else {
			result.Data = next
		}
		result.Steps = append(result.Steps, record)
	}

	result.Success = !failed
	return result
}

// runStep invokes fn, converting a panic into an error so one misbehaving
// step cannot take down the whole run.
func runStep(ctx context.Context, fn StepFunc, data Context) (out Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn(ctx, data)
}
