package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowforge/engine/internal/module"
	"flowforge/engine/internal/registry"
	"flowforge/engine/internal/resilience"
	"flowforge/engine/pkg/types"
)

var modulesCmd = &cobra.Command{
	Use:   "modules [query]",
	Short: "List the builtin module catalog, optionally filtered by a search query",
	Args:  cobra.MaximumNArgs(1),
	RunE:  listModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

func listModules(cmd *cobra.Command, args []string) error {
	guards := resilience.NewManager(resilience.DefaultGuardConfig(), nil)
	reg := registry.New(nil)
	reg.Build(module.Builtin(guards, nil)...)

	var descriptors []types.ModuleDescriptor
	if len(args) == 1 {
		descriptors = reg.Search(args[0])
	} else {
		descriptors = reg.List()
	}
	if len(descriptors) == 0 {
		fmt.Println("no modules matched")
		return nil
	}

	for _, d := range descriptors {
		fmt.Printf("%-50s %s\n", d.Signature(), d.Description)
	}
	return nil
}
