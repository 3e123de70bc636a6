// Package main is the CLI entry point for the resolvr support gateway.
//
// resolvr terminates channel webhooks (web widget, WhatsApp Business
// API, business chat), runs every turn through the orchestration
// pipeline, and exposes an admin/copilot surface for operators.
//
// Start the server:
//
//	resolvr serve --config resolvr.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resolvr",
		Short: "resolvr - multi-tenant conversational support gateway",
		Long: `resolvr runs customer support conversations across web, WhatsApp, and
business chat through a single orchestration pipeline: conversation
state and memory, a confidence/escalation router, SLA tracking, and a
tool runtime for order/shipment lookups.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildConfigCheckCmd(),
	)

	return rootCmd
}
