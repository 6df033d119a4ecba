package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the current engine version.
const Version = "0.1.0"

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Workflow execution engine",
	Long: `flowforge engine runs declarative workflows: ordered steps invoking
registered module functions with templated inputs, dispatched from manual,
cron, or webhook triggers under bounded concurrency.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
