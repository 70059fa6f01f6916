// Package tracing wires Langfuse tracing into every model call through eino's
// global callback handlers.
package tracing

import (
	"context"
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"

	"github.com/54b3r/newsrag-go/internal/version"
)

// Setup registers a global Langfuse handler when LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY are set. The returned flush function must run before
// process exit; it is a no-op when tracing is disabled.
func Setup(log *slog.Logger) (flush func()) {
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")
	if publicKey == "" || secretKey == "" {
		return func() {}
	}

	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = "http://localhost:3000"
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: publicKey,
		SecretKey: secretKey,
		Name:      "newsrag",
		Release:   version.Version,
	})
	callbacks.AppendGlobalHandlers(handler)

	log.Info("tracing: langfuse enabled", slog.String("host", host))
	return flusher
}

// WithRun starts a named chat-model run on ctx so that global handlers see
// direct model calls made outside a compiled graph.
func WithRun(ctx context.Context, name string) context.Context {
	return callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      name,
		Component: components.ComponentOfChatModel,
	})
}
