// Package commands implements the diminutoctl CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// outputFormat controls the output format for commands that render
// structured results (table or json).
var outputFormat string

// rootCmd is the top-level cobra command for diminutoctl.
var rootCmd = &cobra.Command{
	Use:   "diminutoctl",
	Short: "CLI for the diminuto endpoint/ipc/ping/meter primitives",
	Long:  "diminutoctl exercises diminuto's endpoint parser, ICMP probe engine, and rate meter directly, without talking to a running daemon.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(endpointCmd())
	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(meterCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
