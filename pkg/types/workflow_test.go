package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWorkflow() *Workflow {
	return &Workflow{
		ID:      "wf-1",
		Version: DefinitionVersion,
		Name:    "daily report",
		Trigger: Trigger{Type: TriggerManual},
		Config: WorkflowConfig{
			Steps: []Step{
				{ID: "a", Module: "utilities.datetime.now", OutputAs: "t"},
				{ID: "b", Module: "utilities.string-utils.upper", Inputs: map[string]any{"text": "{{t}}"}, OutputAs: "u"},
			},
		},
	}
}

func TestWorkflow_Validate(t *testing.T) {
	require.NoError(t, validWorkflow().Validate())
}

func TestWorkflow_Validate_UnsupportedVersion(t *testing.T) {
	wf := validWorkflow()
	wf.Version = "2.0"

	err := wf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported definition version")
}

func TestWorkflow_Validate_BadModulePath(t *testing.T) {
	cases := []string{
		"NotLower.mod.fn",
		"single",
		"two.parts",
		"a.b.c.d",
		"utilities..now",
		"utilities.date_time.now",
	}
	for _, path := range cases {
		wf := validWorkflow()
		wf.Config.Steps[0].Module = path

		err := wf.Validate()
		require.Error(t, err, "path %q should be rejected", path)
		assert.True(t, IsValidationError(err))
	}
}

func TestWorkflow_Validate_DuplicateOutputAs(t *testing.T) {
	wf := validWorkflow()
	wf.Config.Steps[1].OutputAs = "t"

	err := wf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `already bound by step "a"`)
}

func TestWorkflow_Validate_DuplicateStepID(t *testing.T) {
	wf := validWorkflow()
	wf.Config.Steps[1].ID = "a"

	err := wf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate step id")
}

func TestWorkflow_Validate_BadOutputName(t *testing.T) {
	wf := validWorkflow()
	wf.Config.Steps[0].OutputAs = "9bad"

	err := wf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output variable name")
}

func TestParseWorkflow_TriggerEnvelope(t *testing.T) {
	doc := `{
		"version": "1.0",
		"name": "nightly sync",
		"trigger": {"type": "cron", "config": {"expression": "0 2 * * *"}},
		"config": {"steps": [{"id": "s1", "module": "utilities.datetime.now", "outputAs": "t"}]}
	}`

	wf, err := ParseWorkflow([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, TriggerCron, wf.Trigger.Type)
	require.NotNil(t, wf.Trigger.Cron)
	assert.Equal(t, "0 2 * * *", wf.Trigger.Cron.Expression)
}

func TestParseWorkflow_InvalidCronExpression(t *testing.T) {
	doc := `{
		"name": "bad cron",
		"trigger": {"type": "cron", "config": {"expression": "not a cron"}},
		"config": {"steps": [{"id": "s1", "module": "utilities.datetime.now"}]}
	}`

	_, err := ParseWorkflow([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestTrigger_PlatformNameMapsToPlatformEvent(t *testing.T) {
	var trig Trigger
	require.NoError(t, json.Unmarshal([]byte(`{"type": "telegram", "config": {"event": "message"}}`), &trig))

	assert.Equal(t, TriggerPlatformEvent, trig.Type)
	require.NotNil(t, trig.Platform)
	assert.Equal(t, "telegram", trig.Platform.Platform)
	assert.Equal(t, "message", trig.Platform.Event)
}

func TestTrigger_MarshalRoundTrip(t *testing.T) {
	orig := Trigger{Type: TriggerWebhook, Webhook: &WebhookTriggerConfig{Path: "incoming", Secret: "s3cret"}}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Trigger
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, orig, back)
}

func TestRun_TerminalStateSetOnce(t *testing.T) {
	run := NewRun("wf-1", TriggerManual)
	assert.Equal(t, RunStatusPending, run.Status)

	run.Start()
	assert.Equal(t, RunStatusRunning, run.Status)

	run.Fail("b", "boom")
	assert.Equal(t, RunStatusError, run.Status)
	assert.Equal(t, "b", run.FailedStepID)

	// Terminal state must not change.
	run.Succeed("late output")
	assert.Equal(t, RunStatusError, run.Status)
	assert.Nil(t, run.Output)
}

func TestModuleDescriptor_Signature(t *testing.T) {
	d := ModuleDescriptor{
		Category: "utilities",
		Module:   "string-utils",
		Function: "replace",
		Params: []Param{
			{Name: "text", Required: true},
			{Name: "old", Required: true},
			{Name: "limit", Required: false},
		},
	}
	assert.Equal(t, "utilities.string-utils.replace(text, old, limit?)", d.Signature())
}
