package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowforge/engine/internal/credential"
	"flowforge/engine/internal/registry"
	"flowforge/engine/internal/resolver"
	"flowforge/engine/internal/store"
	"flowforge/engine/pkg/types"
)

type fakeCreds struct {
	secrets map[string]string // platform -> secret
	calls   int
}

func (f *fakeCreds) Get(ctx context.Context, userID, platform string) (string, error) {
	f.calls++
	secret, ok := f.secrets[platform]
	if !ok {
		return "", &credential.NotFoundError{UserID: userID, Platform: platform}
	}
	return secret, nil
}

func testRegistry() *registry.Registry {
	r := registry.New(nil)
	r.Build(
		registry.NewStaticPack("utilities", "datetime",
			registry.Function{Name: "now", Description: "current timestamp",
				Handler: func(ctx context.Context, input map[string]any) (any, error) {
					return "2026-08-28T00:00:00Z", nil
				}},
		),
		registry.NewStaticPack("utilities", "string-utils",
			registry.Function{Name: "upper", Description: "uppercase text",
				Handler: func(ctx context.Context, input map[string]any) (any, error) {
					text, _ := input["text"].(string)
					return strings.ToUpper(text), nil
				}},
			registry.Function{Name: "fail", Description: "always fails",
				Handler: func(ctx context.Context, input map[string]any) (any, error) {
					return nil, errors.New("vendor exploded")
				}},
			registry.Function{Name: "echo", Description: "returns its input",
				Handler: func(ctx context.Context, input map[string]any) (any, error) {
					return input["value"], nil
				}},
		),
	)
	return r
}

func newTestEngine(creds CredentialSource) (*Engine, *store.MemoryRunStore) {
	runs := store.NewMemoryRunStore()
	res := resolver.New(resolver.WithCredentialAliases(credential.Aliases()))
	return New(testRegistry(), res, creds, runs, nil), runs
}

func TestEngine_Execute_EndToEnd(t *testing.T) {
	e, runs := newTestEngine(nil)

	wf := &types.Workflow{
		ID:      "wf-1",
		Name:    "uppercase the time",
		Trigger: types.Trigger{Type: types.TriggerManual},
		Config: types.WorkflowConfig{Steps: []types.Step{
			{ID: "a", Module: "utilities.datetime.now", OutputAs: "t"},
			{ID: "b", Module: "utilities.string-utils.upper", Inputs: map[string]any{"text": "{{t}}"}, OutputAs: "u"},
		}},
	}

	run, err := e.Execute(context.Background(), wf, types.NewRunRequest("wf-1", "u1", types.TriggerManual, nil))
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusSuccess, run.Status)
	require.Len(t, run.Steps, 2)
	assert.True(t, run.Steps[0].Success)
	assert.True(t, run.Steps[1].Success)
	assert.Equal(t, "2026-08-28T00:00:00Z", run.Steps[0].Output)
	assert.Equal(t, "2026-08-28T00:00:00Z", run.Steps[1].Output)

	// Last step's output is the run output when returnValue is unset.
	assert.Equal(t, "2026-08-28T00:00:00Z", run.Output)

	persisted, err := runs.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSuccess, persisted.Status)
}

func TestEngine_Execute_UnknownModuleFailsRun(t *testing.T) {
	e, _ := newTestEngine(nil)

	wf := &types.Workflow{
		ID:      "wf-2",
		Name:    "broken",
		Trigger: types.Trigger{Type: types.TriggerManual},
		Config: types.WorkflowConfig{Steps: []types.Step{
			{ID: "good", Module: "utilities.datetime.now", OutputAs: "t"},
			{ID: "bad", Module: "nonexistent.mod.fn"},
			{ID: "never", Module: "utilities.datetime.now"},
		}},
	}

	run, err := e.Execute(context.Background(), wf, types.NewRunRequest("wf-2", "u1", types.TriggerManual, nil))
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusError, run.Status)
	assert.Equal(t, "bad", run.FailedStepID)
	assert.Contains(t, run.Error, "nonexistent.mod.fn")
	// No step results beyond the failing one.
	require.Len(t, run.Steps, 2)
	assert.False(t, run.Steps[1].Success)
}

func TestEngine_Execute_StepFailureHaltsRun(t *testing.T) {
	e, _ := newTestEngine(nil)

	wf := &types.Workflow{
		ID:      "wf-3",
		Name:    "halts",
		Trigger: types.Trigger{Type: types.TriggerManual},
		Config: types.WorkflowConfig{Steps: []types.Step{
			{ID: "a", Module: "utilities.string-utils.fail"},
			{ID: "b", Module: "utilities.datetime.now"},
		}},
	}

	run, err := e.Execute(context.Background(), wf, types.NewRunRequest("wf-3", "u1", types.TriggerManual, nil))
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusError, run.Status)
	assert.Equal(t, "a", run.FailedStepID)
	assert.Contains(t, run.Error, "vendor exploded")
	assert.Len(t, run.Steps, 1)
}

func TestEngine_Execute_TriggerPayloadSeedsContext(t *testing.T) {
	e, _ := newTestEngine(nil)

	wf := &types.Workflow{
		ID:      "wf-4",
		Name:    "payload",
		Trigger: types.Trigger{Type: types.TriggerWebhook, Webhook: &types.WebhookTriggerConfig{Path: "in"}},
		Config: types.WorkflowConfig{Steps: []types.Step{
			{ID: "a", Module: "utilities.string-utils.upper", Inputs: map[string]any{"text": "{{trigger.name}}"}, OutputAs: "up"},
		}},
	}

	req := types.NewRunRequest("wf-4", "u1", types.TriggerWebhook, map[string]any{"name": "ada"})
	run, err := e.Execute(context.Background(), wf, req)
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusSuccess, run.Status)
	assert.Equal(t, "ADA", run.Output)
}

func TestEngine_Execute_CredentialsMaterializedLazily(t *testing.T) {
	creds := &fakeCreds{secrets: map[string]string{"youtube": "yt-key"}}
	e, _ := newTestEngine(creds)

	wf := &types.Workflow{
		ID:      "wf-5",
		Name:    "creds",
		Trigger: types.Trigger{Type: types.TriggerManual},
		Config: types.WorkflowConfig{Steps: []types.Step{
			// First step references no credentials: nothing is loaded.
			{ID: "a", Module: "utilities.datetime.now", OutputAs: "t"},
			// Historical alias resolves to the same stored secret.
			{ID: "b", Module: "utilities.string-utils.echo", Inputs: map[string]any{"value": "{{credential.youtube_api_key}}"}, OutputAs: "key"},
		}},
	}

	run, err := e.Execute(context.Background(), wf, types.NewRunRequest("wf-5", "u1", types.TriggerManual, nil))
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusSuccess, run.Status)
	assert.Equal(t, "yt-key", run.Output)
	assert.Equal(t, 1, creds.calls, "only the referenced platform is materialized")
}

func TestEngine_Execute_MissingCredentialNamesPlatform(t *testing.T) {
	creds := &fakeCreds{secrets: map[string]string{}}
	e, _ := newTestEngine(creds)

	wf := &types.Workflow{
		ID:      "wf-6",
		Name:    "missing cred",
		Trigger: types.Trigger{Type: types.TriggerManual},
		Config: types.WorkflowConfig{Steps: []types.Step{
			{ID: "a", Module: "utilities.string-utils.echo", Inputs: map[string]any{"value": "{{credential.figma}}"}},
		}},
	}

	run, err := e.Execute(context.Background(), wf, types.NewRunRequest("wf-6", "u1", types.TriggerManual, nil))
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusError, run.Status)
	assert.Equal(t, "a", run.FailedStepID)
	assert.Contains(t, run.Error, "figma")
}

func TestEngine_Execute_ReturnValue(t *testing.T) {
	e, _ := newTestEngine(nil)

	wf := &types.Workflow{
		ID:      "wf-7",
		Name:    "designated return",
		Trigger: types.Trigger{Type: types.TriggerManual},
		Config: types.WorkflowConfig{
			Steps: []types.Step{
				{ID: "a", Module: "utilities.datetime.now", OutputAs: "t"},
				{ID: "b", Module: "utilities.string-utils.upper", Inputs: map[string]any{"text": "done"}, OutputAs: "u"},
			},
			ReturnValue: "t",
		},
	}

	run, err := e.Execute(context.Background(), wf, types.NewRunRequest("wf-7", "u1", types.TriggerManual, nil))
	require.NoError(t, err)
	assert.Equal(t, "2026-08-28T00:00:00Z", run.Output)
}

func TestEngine_Execute_InvalidDefinitionFailsBeforeSteps(t *testing.T) {
	e, _ := newTestEngine(nil)

	wf := &types.Workflow{
		ID:      "wf-8",
		Name:    "dup outputs",
		Trigger: types.Trigger{Type: types.TriggerManual},
		Config: types.WorkflowConfig{Steps: []types.Step{
			{ID: "a", Module: "utilities.datetime.now", OutputAs: "x"},
			{ID: "b", Module: "utilities.datetime.now", OutputAs: "x"},
		}},
	}

	run, err := e.Execute(context.Background(), wf, types.NewRunRequest("wf-8", "u1", types.TriggerManual, nil))
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusError, run.Status)
	assert.Equal(t, "b", run.FailedStepID)
	assert.Empty(t, run.Steps, "no step executed")
}

func TestService_Run(t *testing.T) {
	workflows := store.NewMemoryWorkflowStore()
	runs := store.NewMemoryRunStore()
	res := resolver.New()
	e := New(testRegistry(), res, nil, runs, nil)
	svc := NewService(workflows, e)

	wf := &types.Workflow{
		ID:      "wf-9",
		Name:    "via service",
		Trigger: types.Trigger{Type: types.TriggerManual},
		Enabled: true,
		Config: types.WorkflowConfig{Steps: []types.Step{
			{ID: "a", Module: "utilities.datetime.now", OutputAs: "t"},
		}},
	}
	require.NoError(t, workflows.Save(context.Background(), wf))

	req := types.NewRunRequest("wf-9", "u1", types.TriggerManual, nil)
	require.NoError(t, svc.Run(context.Background(), req))

	run, err := runs.Get(context.Background(), req.RunID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSuccess, run.Status)
}

func TestService_Run_UnknownWorkflow(t *testing.T) {
	svc := NewService(store.NewMemoryWorkflowStore(), New(testRegistry(), resolver.New(), nil, store.NewMemoryRunStore(), nil))

	err := svc.Run(context.Background(), types.NewRunRequest("ghost", "u1", types.TriggerManual, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}
