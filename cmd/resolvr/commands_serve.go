package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the gateway
// server: webhook/admin HTTP surface, orchestrator, and every
// configured store/provider.
func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the resolvr gateway server",
		Long: `Start the resolvr gateway server.

The server will:
1. Load and validate configuration from the given file
2. Wire conversation, VOC, customer-link, audit-chain, and PII-vault
   stores to Redis/Postgres when configured, in-memory otherwise
3. Start the webhook/admin/metrics HTTP listener
4. Start the SLA breach-detection scheduler, if enabled

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  resolvr serve --config resolvr.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "resolvr.yaml", "Path to YAML configuration file")
	return cmd
}

// buildConfigCheckCmd creates the "config check" command: load and
// validate configuration without starting the server.
func buildConfigCheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config-check",
		Short: "Load and validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigCheck(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "resolvr.yaml", "Path to YAML configuration file")
	return cmd
}
