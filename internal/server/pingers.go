package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/provider"
)

// LLMPinger probes the chat model backend. It prefers a zero-cost
// health check and falls back to a one-message Generate call, which spends
// tokens, only when the backend has none.
type LLMPinger struct {
	model       model.BaseChatModel
	healthCheck provider.HealthCheckConfig
	name        string
}

// NewLLMPinger constructs an LLMPinger. hc may be nil.
func NewLLMPinger(m model.BaseChatModel, hc provider.HealthCheckConfig, name string) *LLMPinger {
	return &LLMPinger{model: m, healthCheck: hc, name: name}
}

func (p *LLMPinger) Name() string { return p.name }

func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.healthCheck != nil {
		if err := p.healthCheck.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", p.name, err)
		}
		return nil
	}
	if p.model == nil {
		return fmt.Errorf("%s: no model configured", p.name)
	}

	logging.FromContext(ctx).Warn("pinger: using Generate for readiness, tokens will be consumed")
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// pingable is satisfied by *rag.Index and both vector stores.
type pingable interface {
	Ping(ctx context.Context) error
}

// IndexPinger probes the vector index backend.
type IndexPinger struct {
	target pingable
	name   string
}

// NewIndexPinger labels target with backend (e.g. "sqlite", "qdrant").
func NewIndexPinger(target pingable, backend string) *IndexPinger {
	return &IndexPinger{target: target, name: backend}
}

func (p *IndexPinger) Name() string { return p.name }

func (p *IndexPinger) Ping(ctx context.Context) error {
	if err := p.target.Ping(ctx); err != nil {
		return fmt.Errorf("index unreachable: %w", err)
	}
	return nil
}
