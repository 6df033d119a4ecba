// Package engine executes workflow definitions step by step.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"flowforge/engine/internal/registry"
	"flowforge/engine/internal/resolver"
	"flowforge/engine/internal/store"
	"flowforge/engine/pkg/types"
)

// credentialPrefix marks template paths resolved through the credential cache.
const credentialPrefix = "credential."

// CredentialSource resolves a user's decrypted secret for a platform.
type CredentialSource interface {
	Get(ctx context.Context, userID, platform string) (string, error)
}

// Engine runs one workflow definition to a terminal state. Steps execute
// strictly sequentially; each step may reference prior step outputs through
// the resolver. There is no retry at this layer; transient-fault handling
// lives inside the callables' resilience guards.
type Engine struct {
	registry *registry.Registry
	resolver *resolver.Resolver
	creds    CredentialSource
	runs     store.RunStore
	logger   *zap.Logger
}

// New creates an Engine. creds may be nil when no credential backend is
// configured; credential references then fail the run.
func New(reg *registry.Registry, res *resolver.Resolver, creds CredentialSource, runs store.RunStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: reg,
		resolver: res,
		creds:    creds,
		runs:     runs,
		logger:   logger,
	}
}

// Execute runs wf for the given request and returns the terminal run record.
// The returned error reports infrastructure problems (persistence); workflow
// failures are expressed in the run's status, not the error.
func (e *Engine) Execute(ctx context.Context, wf *types.Workflow, req types.RunRequest) (*types.Run, error) {
	run := &types.Run{
		ID:         req.RunID,
		WorkflowID: wf.ID,
		Status:     types.RunStatusPending,
		Trigger:    req.Trigger,
	}
	if run.ID == "" {
		run = types.NewRun(wf.ID, req.Trigger)
	}

	if err := e.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	log := e.logger.With(
		zap.String("workflow_id", wf.ID),
		zap.String("run_id", run.ID))

	run.Start()
	log.Info("workflow run started", zap.Int("steps", len(wf.Config.Steps)))

	// Definition errors surface before any step executes.
	if err := wf.Validate(); err != nil {
		e.finishFailed(ctx, run, stepIDOf(err), err.Error(), log)
		return run, nil
	}

	data := seedContext(req)
	var lastOutput any

	for i := range wf.Config.Steps {
		step := &wf.Config.Steps[i]

		output, err := e.executeStep(ctx, step, req.UserID, data, run, log)
		if err != nil {
			e.finishFailed(ctx, run, step.ID, err.Error(), log)
			return run, nil
		}

		lastOutput = output
		if step.OutputAs != "" {
			data[step.OutputAs] = output
		}
	}

	output := lastOutput
	if wf.Config.ReturnValue != "" {
		if v, ok := e.resolver.Lookup(wf.Config.ReturnValue, data); ok {
			output = v
		}
	}

	run.Succeed(output)
	if err := e.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist run result: %w", err)
	}
	log.Info("workflow run succeeded", zap.Duration("elapsed", time.Since(run.StartedAt)))
	return run, nil
}

// executeStep resolves inputs, looks up and invokes the callable, and records
// the step result on the run. The returned error halts the run.
func (e *Engine) executeStep(ctx context.Context, step *types.Step, userID string, data map[string]any, run *types.Run, log *zap.Logger) (any, error) {
	start := time.Now()

	if err := e.materializeCredentials(ctx, step, userID, data); err != nil {
		run.Steps = append(run.Steps, failedResult(step.ID, start, err))
		return nil, err
	}

	inputs := e.resolver.ResolveInputs(step.Inputs, data)

	entry, err := e.registry.Resolve(step.Module)
	if err != nil {
		// An unresolvable module path is an authoring mistake, never retried.
		run.Steps = append(run.Steps, failedResult(step.ID, start, err))
		return nil, err
	}

	output, err := invoke(ctx, entry.Callable, inputs)
	end := time.Now()
	result := types.StepResult{
		StepID:    step.ID,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
	if err != nil {
		result.Error = err.Error()
		run.Steps = append(run.Steps, result)
		log.Warn("step failed",
			zap.String("step_id", step.ID),
			zap.String("module", step.Module),
			zap.Error(err))
		return nil, err
	}

	result.Success = true
	result.Output = output
	run.Steps = append(run.Steps, result)
	log.Debug("step succeeded",
		zap.String("step_id", step.ID),
		zap.String("module", step.Module),
		zap.Duration("duration", result.Duration))
	return output, nil
}

// materializeCredentials lazily seeds the secrets a step actually references.
// Only referenced platforms are loaded, never a user's whole credential set.
func (e *Engine) materializeCredentials(ctx context.Context, step *types.Step, userID string, data map[string]any) error {
	for _, ref := range e.resolver.ExtractRefs(step.Inputs) {
		if !strings.HasPrefix(ref, credentialPrefix) {
			continue
		}
		platform := strings.SplitN(strings.TrimPrefix(ref, credentialPrefix), ".", 2)[0]
		canonical := e.resolver.CanonicalPlatform(platform)

		bucket, _ := data["credential"].(map[string]any)
		if bucket == nil {
			bucket = make(map[string]any)
			data["credential"] = bucket
		}
		if _, seeded := bucket[canonical]; seeded {
			continue
		}

		if e.creds == nil {
			return fmt.Errorf("no credential backend configured (platform %q)", platform)
		}
		secret, err := e.creds.Get(ctx, userID, canonical)
		if err != nil {
			return err
		}
		bucket[canonical] = secret
	}
	return nil
}

// finishFailed marks the run failed and persists it.
func (e *Engine) finishFailed(ctx context.Context, run *types.Run, stepID, message string, log *zap.Logger) {
	run.Fail(stepID, message)
	if err := e.runs.Update(ctx, run); err != nil {
		log.Error("failed to persist failed run", zap.Error(err))
	}
	log.Warn("workflow run failed",
		zap.String("failed_step", stepID),
		zap.String("error", message))
}

// failedResult builds the step record for a failure that happened before or
// instead of the callable invocation.
func failedResult(stepID string, start time.Time, err error) types.StepResult {
	end := time.Now()
	return types.StepResult{
		StepID:    stepID,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Error:     err.Error(),
	}
}

// invoke calls a callable, converting a panic into an error so a misbehaving
// module cannot take down the worker.
func invoke(ctx context.Context, fn types.Callable, input map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn(ctx, input)
}

// seedContext builds the initial run context from the trigger payload.
// Payload keys are visible both at the top level and under "trigger".
func seedContext(req types.RunRequest) map[string]any {
	data := make(map[string]any, len(req.Payload)+1)
	for k, v := range req.Payload {
		data[k] = v
	}
	trigger := make(map[string]any, len(req.Payload))
	for k, v := range req.Payload {
		trigger[k] = v
	}
	data["trigger"] = trigger
	return data
}

func stepIDOf(err error) string {
	if verr, ok := err.(*types.ValidationError); ok {
		return verr.StepID
	}
	return ""
}
