package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/newsrag-go/internal/ingestion"
	"github.com/54b3r/newsrag-go/internal/logging"
)

type collectOutput struct {
	Fetched int `json:"fetched"`
	Scraped int `json:"scraped"`
	Stored  int `json:"stored"`
}

// NewCollectCmd constructs the `newsrag collect` command, a one-shot run of
// the daily collection job.
func NewCollectCmd() *cobra.Command {
	var keywords []string
	var total int

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch news from Naver, snapshot it and store it in the index",
		Long: `Search Naver news for each keyword, scrape the article bodies, write the
snapshot file and upsert every article into the vector index.

Keywords default to NEWSRAG_KEYWORDS, then 경제 and IT.

Examples:
  newsrag collect
  newsrag collect -k 반도체 -k 환율 --total 50`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			if len(keywords) == 0 {
				keywords = collectKeywords()
			}
			if !cmd.Flags().Changed("total") {
				total = getEnvInt("NEWSRAG_COLLECT_TOTAL", ingestion.DefaultTotal)
			}

			a, err := buildApp(ctx, log, needs{collector: true})
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}
			defer a.close()

			stats, err := a.svc.Collect(ctx, keywords, total, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}
			log.Info("collect: done", slog.Int("stored", stats.Stored))

			return printJSON(cmd.OutOrStdout(), collectOutput{
				Fetched: stats.Fetched,
				Scraped: stats.Scraped,
				Stored:  stats.Stored,
			})
		},
	}

	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "Keyword to search (repeatable)")
	cmd.Flags().IntVar(&total, "total", ingestion.DefaultTotal, "Search hits requested per keyword (env NEWSRAG_COLLECT_TOTAL)")

	return cmd
}
