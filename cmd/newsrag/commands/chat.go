package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
)

type chatOutput struct {
	Answer     string             `json:"answer"`
	References []news.SummaryItem `json:"references"`
}

// NewChatCmd constructs the `newsrag chat` command, which answers a
// question from the indexed articles.
func NewChatCmd() *cobra.Command {
	var journal string

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Answer a question as a news expert, citing indexed articles",
		Long: `Retrieve the articles most similar to the question, summarise them and
compose an expert answer from the summaries.

Examples:
  newsrag chat "금리 인하가 부동산 시장에 미칠 영향은?"
  newsrag chat "반도체 수출 전망" --journal 연합뉴스`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			query, err := queryArg(args)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			a, err := buildApp(ctx, log, needs{})
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer a.close()

			answer, refs, err := a.svc.ExpertReply(ctx, query, journal)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			if refs == nil {
				refs = []news.SummaryItem{}
			}
			return printJSON(cmd.OutOrStdout(), chatOutput{Answer: answer, References: refs})
		},
	}

	cmd.Flags().StringVar(&journal, "journal", "", "Only retrieve articles from this publisher")

	return cmd
}

// queryArg joins args into a single query of at least two characters.
func queryArg(args []string) (string, error) {
	q := strings.TrimSpace(strings.Join(args, " "))
	if utf8.RuneCountInString(q) < 2 {
		return "", errors.New("query must be at least 2 characters")
	}
	return q, nil
}
