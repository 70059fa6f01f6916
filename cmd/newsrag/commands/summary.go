package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
	"github.com/54b3r/newsrag-go/internal/orchestrator"
)

type staticOutput struct {
	Keyword  string             `json:"keyword"`
	Journal  string             `json:"journal,omitempty"`
	Articles []news.SummaryItem `json:"articles"`
}

// NewSummaryCmd constructs the `newsrag summary` command.
func NewSummaryCmd() *cobra.Command {
	var static bool
	var journal string
	var k int

	cmd := &cobra.Command{
		Use:   "summary <keyword> [keyword...]",
		Short: "Summarise the indexed articles most similar to each keyword",
		Long: `Summarise the top articles for each keyword. Keywords run concurrently and a
failed keyword is reported inline without failing the others.

With --static a single keyword is ranked against the local corpus file
(NEWSRAG_CORPUS) instead of the vector index.

Examples:
  newsrag summary 경제 IT
  newsrag summary 반도체 --static --journal 한국경제 -k 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			if static && len(args) != 1 {
				return errors.New("summary: --static takes exactly one keyword")
			}
			if k < 1 || k > 20 {
				return fmt.Errorf("summary: -k must be between 1 and 20, got %d", k)
			}

			a, err := buildApp(ctx, log, needs{static: static})
			if err != nil {
				return fmt.Errorf("summary: %w", err)
			}
			defer a.close()

			if !static {
				return printJSON(cmd.OutOrStdout(), a.svc.BatchKeywordSummary(ctx, args))
			}

			items, err := a.svc.StaticKeywordSummary(ctx, args[0], k, journal)
			if err != nil {
				return fmt.Errorf("summary: %w", err)
			}
			if items == nil {
				items = []news.SummaryItem{}
			}
			return printJSON(cmd.OutOrStdout(), staticOutput{Keyword: args[0], Journal: journal, Articles: items})
		},
	}

	cmd.Flags().BoolVar(&static, "static", false, "Rank against the local corpus file instead of the index")
	cmd.Flags().StringVar(&journal, "journal", "", "Only consider articles from this publisher (static mode)")
	cmd.Flags().IntVarP(&k, "top", "k", orchestrator.StaticTopK, "Articles to summarise (static mode)")

	return cmd
}
