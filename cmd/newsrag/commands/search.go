package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
)

type searchOutput struct {
	Query   string             `json:"query"`
	Results []news.SummaryItem `json:"results"`
}

// NewSearchCmd constructs the `newsrag search` command.
func NewSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Summarise the indexed articles most similar to a free-text query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			query, err := queryArg(args)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			a, err := buildApp(ctx, log, needs{})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer a.close()

			items, err := a.svc.Search(ctx, query)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if items == nil {
				items = []news.SummaryItem{}
			}
			return printJSON(cmd.OutOrStdout(), searchOutput{Query: query, Results: items})
		},
	}
}
