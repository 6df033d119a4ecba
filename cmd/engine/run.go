package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"flowforge/engine/internal/credential"
	"flowforge/engine/internal/engine"
	"flowforge/engine/internal/module"
	"flowforge/engine/internal/registry"
	"flowforge/engine/internal/resilience"
	"flowforge/engine/internal/resolver"
	"flowforge/engine/internal/store"
	"flowforge/engine/pkg/logger"
	"flowforge/engine/pkg/types"
)

var runPayload string

var runCmd = &cobra.Command{
	Use:   "run <workflow.json>",
	Short: "Execute a workflow definition file once and print the run record",
	Example: `  # Execute a definition
  engine run workflow.json

  # Execute with a trigger payload
  engine run --payload '{"name": "ada"}' workflow.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runPayload, "payload", "", "trigger payload as a JSON object")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	wf, err := types.ParseWorkflow(data)
	if err != nil {
		return err
	}
	if wf.ID == "" {
		wf.ID = "standalone"
	}

	var payload map[string]any
	if runPayload != "" {
		if err := sonic.UnmarshalString(runPayload, &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
	}

	level := "warn"
	if debug {
		level = "debug"
	}
	logger.Init(&logger.Config{Level: level, Format: "console", Output: "stdout"})
	defer logger.Sync()

	guards := resilience.NewManager(resilience.DefaultGuardConfig(), logger.Named("resilience"))
	reg := registry.New(logger.Named("registry"))
	reg.Build(module.Builtin(guards, nil)...)

	res := resolver.New(resolver.WithCredentialAliases(credential.Aliases()))
	eng := engine.New(reg, res, nil, store.NewMemoryRunStore(), logger.Named("engine"))

	run, err := eng.Execute(context.Background(),
		wf, types.NewRunRequest(wf.ID, "", types.TriggerManual, payload))
	if err != nil {
		return err
	}

	out, err := sonic.ConfigDefault.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if run.Status != types.RunStatusSuccess {
		return fmt.Errorf("run failed at step %s: %s", run.FailedStepID, run.Error)
	}
	return nil
}
