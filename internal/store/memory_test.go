package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowforge/engine/pkg/types"
)

func sampleWorkflow(id string, trigger types.TriggerType, enabled bool) *types.Workflow {
	return &types.Workflow{
		ID:      id,
		Name:    "wf " + id,
		Trigger: types.Trigger{Type: trigger},
		Enabled: enabled,
		Config: types.WorkflowConfig{Steps: []types.Step{
			{ID: "s1", Module: "utilities.datetime.now"},
		}},
	}
}

func TestMemoryWorkflowStore_CRUD(t *testing.T) {
	s := NewMemoryWorkflowStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, sampleWorkflow("a", types.TriggerManual, true)))
	require.NoError(t, s.Save(ctx, sampleWorkflow("b", types.TriggerCron, true)))

	wf, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "wf a", wf.Name)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryWorkflowStore_ListByTriggerType(t *testing.T) {
	s := NewMemoryWorkflowStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleWorkflow("cron-on", types.TriggerCron, true)))
	require.NoError(t, s.Save(ctx, sampleWorkflow("cron-off", types.TriggerCron, false)))
	require.NoError(t, s.Save(ctx, sampleWorkflow("manual", types.TriggerManual, true)))

	crons, err := s.ListByTriggerType(ctx, types.TriggerCron)
	require.NoError(t, err)
	require.Len(t, crons, 1, "disabled workflows are excluded")
	assert.Equal(t, "cron-on", crons[0].ID)
}

func TestMemoryRunStore_CreateUpdateGet(t *testing.T) {
	s := NewMemoryRunStore()
	ctx := context.Background()

	run := types.NewRun("wf-1", types.TriggerManual)
	require.NoError(t, s.Create(ctx, run))

	run.Start()
	run.Succeed("done")
	require.NoError(t, s.Update(ctx, run))

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSuccess, got.Status)
	assert.Equal(t, "done", got.Output)
}

func TestMemoryRunStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryRunStore()
	ctx := context.Background()

	run := types.NewRun("wf-1", types.TriggerManual)
	require.NoError(t, s.Create(ctx, run))

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	got.Status = types.RunStatusError

	again, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusPending, again.Status, "mutating a returned run must not affect the store")
}

func TestMemoryRunStore_ListFilterAndOrder(t *testing.T) {
	s := NewMemoryRunStore()
	ctx := context.Background()

	old := types.NewRun("wf-1", types.TriggerManual)
	old.StartedAt = time.Now().Add(-time.Hour)
	old.Status = types.RunStatusSuccess
	require.NoError(t, s.Create(ctx, old))

	recent := types.NewRun("wf-1", types.TriggerCron)
	recent.StartedAt = time.Now()
	recent.Status = types.RunStatusError
	require.NoError(t, s.Create(ctx, recent))

	other := types.NewRun("wf-2", types.TriggerManual)
	other.StartedAt = time.Now().Add(-time.Minute)
	require.NoError(t, s.Create(ctx, other))

	runs, err := s.List(ctx, RunFilter{WorkflowID: "wf-1"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, recent.ID, runs[0].ID, "newest first")

	failed, err := s.List(ctx, RunFilter{Status: types.RunStatusError})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, recent.ID, failed[0].ID)

	limited, err := s.List(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
