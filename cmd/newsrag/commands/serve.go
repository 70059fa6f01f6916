package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/scheduler"
	"github.com/54b3r/newsrag-go/internal/server"
)

// NewServeCmd constructs the `newsrag serve` command, which starts the HTTP
// API and the daily collection job.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var schedule string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the newsrag HTTP API and daily collection",
		Long: `Start the newsrag HTTP API.

Routes:
  GET /keyword-summary?keywords=경제&keywords=IT
  GET /collect-and-store?total=100
  GET /search?query=...
  GET /chat?query=...&journal=...
  GET /static-summary?keyword=...&journal=...&k=4
  GET /api/health, /api/ready, /metrics

Unless --schedule is "off", collection of NEWSRAG_KEYWORDS (default 경제, IT)
runs every day at the given local time.

Examples:
  newsrag serve
  newsrag serve --port 9090 --schedule 07:30
  VECTOR_BACKEND=qdrant newsrag serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			// Flag defaults come from the environment after config files load.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("NEWSRAG_HOST", "0.0.0.0")
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("NEWSRAG_PORT", 8000)
			}
			if !cmd.Flags().Changed("schedule") {
				schedule = getEnvOrDefault("NEWSRAG_SCHEDULE", scheduler.DefaultAt)
			}

			a, err := buildApp(ctx, log, needs{})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.close()

			keywords := collectKeywords()
			srv, err := server.New(a.svc, &server.Config{
				Host:            host,
				Port:            port,
				Logger:          log,
				Pingers:         buildPingers(a),
				CollectKeywords: keywords,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(gctx) })

			switch {
			case strings.EqualFold(schedule, "off"):
				log.Info("scheduler: disabled")
			case !a.canCollect:
				log.Warn("scheduler: disabled, collection is not configured")
			default:
				total := getEnvInt("NEWSRAG_COLLECT_TOTAL", 0)
				daily, err := scheduler.NewDaily(schedule, nil, func(ctx context.Context) error {
					stats, err := a.svc.Collect(ctx, keywords, total, func(msg string) {
						logging.FromContext(ctx).Debug(msg)
					})
					if err != nil {
						return err
					}
					logging.FromContext(ctx).Info("scheduled collection stored articles",
						slog.Int("fetched", stats.Fetched),
						slog.Int("stored", stats.Stored),
					)
					return nil
				})
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				g.Go(func() error {
					daily.Run(gctx)
					return nil
				})
			}

			return ignoreCanceled(g.Wait())
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host address to bind to (env NEWSRAG_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on (env NEWSRAG_PORT)")
	cmd.Flags().StringVar(&schedule, "schedule", scheduler.DefaultAt, `Daily collection time (HH:MM, local) or "off" (env NEWSRAG_SCHEDULE)`)

	return cmd
}
