// Package cli implements the Sentinel command-line interface using Cobra.
// Each subcommand maps to one governance operation (propose, vote, exec,
// show, learning, outcome) plus the API server (serve).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel — hybrid treasury governance",
	Long: `Sentinel is a stake-weighted governance engine for agent-managed treasuries.
Humans ratify or override autonomous agent decisions; each reconciled
override feeds back into how much the agents' confidence is trusted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
