// Package commands defines all Cobra CLI commands for the newsrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/newsrag-go/internal/audit"
	"github.com/54b3r/newsrag-go/internal/config"
	"github.com/54b3r/newsrag-go/internal/logging"
)

// configPath holds the --config flag value.
var configPath string

// NewRootCmd constructs the root command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsrag",
		Short: "newsrag: Korean news retrieval and LLM summaries",
		Long: `newsrag collects news from the Naver search API, indexes it in a vector
store and answers questions with summaries of the most similar articles.

The chat model is selected with MODEL_PROVIDER, embeddings with
EMBEDDING_PROVIDER, and the index backend with VECTOR_BACKEND. Values may
also come from .env or a YAML config file (~/.newsrag/config.yaml).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			src, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			// Rebuild so LOG_LEVEL and LOG_FORMAT from the files apply.
			log = logging.New()
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), src.YAML, src.DotEnv)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.newsrag/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewCollectCmd(),
		NewSummaryCmd(),
		NewChatCmd(),
		NewSearchCmd(),
		NewVersionCmd(),
	)

	return root
}
