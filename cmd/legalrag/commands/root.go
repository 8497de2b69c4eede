// Package commands defines all Cobra CLI commands for the legalrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/legalrag-go/internal/audit"
	"github.com/54b3r/legalrag-go/internal/config"
	"github.com/54b3r/legalrag-go/internal/logging"
)

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "legalrag",
		Short: "Legal case intake: classify case type and urgency with retrieval-augmented LLMs",
		Long: `legalrag classifies incoming legal matters. For each case description it
retrieves related statutes, case law and regulations from a vector store,
asks an LLM for the case type, urgency and reasoning, and derives urgency
from the trial date when one is given.

The model provider is selected via MODEL_PROVIDER (default: gemini), the
vector store via VECTOR_STORE (default: supabase) and the embedder via
EMBEDDING_PROVIDER (default: tei). Settings may also come from a .env file
or a YAML config file (~/.legalrag/config.yaml); env vars always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			if err := config.LoadDotEnv(log); err != nil {
				return err
			}
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			// LOG_* may have come from a file; rebuild so they take effect.
			log = logging.New()
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.legalrag/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewPredictCmd(),
		NewIngestCmd(),
		NewUrgencyCmd(),
		NewVersionCmd(),
	)

	return root
}
