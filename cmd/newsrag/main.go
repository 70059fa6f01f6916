// Command newsrag collects Korean news, indexes it for similarity search and
// answers keyword and natural-language queries with LLM summaries. It runs
// as a CLI (via Cobra) or as an HTTP service with a daily collection job.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/newsrag-go/cmd/newsrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
