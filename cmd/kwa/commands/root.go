// Package commands defines all Cobra CLI commands for the kwa binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/kwa-go/internal/audit"
	"github.com/54b3r/kwa-go/internal/config"
	"github.com/54b3r/kwa-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kwa",
		Short: "KWA — a knowledge worker agent over your documents",
		Long: `KWA is a local-first assistant that answers questions grounded in your
own documents.

Ingest PDFs, Word documents, text, markdown and web pages into a searchable
index, then chat with an agent that retrieves and cites them, summarizes
individual documents, and can trigger registered business actions.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.kwa/config.yaml).
See 'kwa --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.kwa/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewChatCmd(),
		NewSearchCmd(),
		NewStatusCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
