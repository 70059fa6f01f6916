// Package summarizer turns article text, article pages and retrieved
// summaries into model-written Korean prose. Every operation returns a
// string; failures become one of the fixed sentinel strings below and are
// logged, never returned as errors.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"

	"github.com/54b3r/newsrag-go/internal/budget"
	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
	"github.com/54b3r/newsrag-go/internal/tracing"
)

// Sentinel strings returned in place of errors.
const (
	SentinelSummaryFailed = "요약에 실패했습니다."
	SentinelFetchFailed   = "요약을 처리하는 중 문제가 발생했습니다."
	SentinelNoContent     = "본문을 가져올 수 없습니다."
	SentinelNoRelatedNews = "죄송합니다. 관련 뉴스를 찾을 수 없습니다."
	SentinelAnswerFailed  = "답변 생성 중 오류가 발생했습니다."
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultModelTimeout = 60 * time.Second
)

// Config holds the dependencies required to construct an Engine.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.BaseChatModel

	// HTTPClient fetches article pages. Defaults to a client with
	// FetchTimeout.
	HTTPClient *http.Client

	// FetchTimeout bounds a page fetch. Defaults to 10s.
	FetchTimeout time.Duration

	// ModelTimeout bounds a single model call. Defaults to 60s.
	ModelTimeout time.Duration

	// MaxInputTokens caps the article text placed in one prompt.
	// Defaults to budget.DefaultMaxInputTokens.
	MaxInputTokens int
}

// Engine is safe for concurrent use.
type Engine struct {
	model          model.BaseChatModel
	client         *http.Client
	modelTimeout   time.Duration
	maxInputTokens int
}

// New constructs an Engine from cfg.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil || cfg.ChatModel == nil {
		return nil, fmt.Errorf("summarizer: ChatModel must not be nil")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.FetchTimeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	modelTimeout := cfg.ModelTimeout
	if modelTimeout <= 0 {
		modelTimeout = defaultModelTimeout
	}

	maxTokens := cfg.MaxInputTokens
	if maxTokens <= 0 {
		maxTokens = budget.DefaultMaxInputTokens
	}

	return &Engine{
		model:          cfg.ChatModel,
		client:         client,
		modelTimeout:   modelTimeout,
		maxInputTokens: maxTokens,
	}, nil
}

// SummarizeText summarises an article body in three sentences. Blank text
// yields SentinelSummaryFailed without a model call.
func (e *Engine) SummarizeText(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return SentinelSummaryFailed
	}

	out, err := e.generate(ctx, "summarize_text", textTemplate, map[string]any{
		"text": budget.Truncate(text, e.maxInputTokens),
	}, textTemperature)
	if err != nil {
		logging.FromContext(ctx).Warn("summarizer: text summary failed", slog.Any("error", err))
		return SentinelSummaryFailed
	}
	return out
}

// SummarizeFromURL fetches url, extracts its paragraph text and summarises
// it. A page without paragraph text yields SentinelNoContent and a failed
// fetch SentinelFetchFailed; neither calls the model.
func (e *Engine) SummarizeFromURL(ctx context.Context, url string) string {
	log := logging.FromContext(ctx).With(slog.String("url", url))

	text, err := e.fetchParagraphs(ctx, url)
	if err != nil {
		log.Warn("summarizer: page fetch failed", slog.Any("error", err))
		return SentinelFetchFailed
	}
	if strings.TrimSpace(text) == "" {
		return SentinelNoContent
	}

	out, err := e.generate(ctx, "summarize_url", urlTemplate, map[string]any{
		"text": budget.Truncate(text, e.maxInputTokens),
	}, urlTemperature)
	if err != nil {
		log.Warn("summarizer: page summary failed", slog.Any("error", err))
		return SentinelSummaryFailed
	}
	return out
}

// AnswerExpertQuery answers question grounded in refs.
func (e *Engine) AnswerExpertQuery(ctx context.Context, question string, refs []news.SummaryItem) string {
	out, err := e.generate(ctx, "expert_answer", expertTemplate, map[string]any{
		"question":  question,
		"summaries": formatReferences(refs),
	}, expertTemperature)
	if err != nil {
		logging.FromContext(ctx).Warn("summarizer: expert answer failed",
			slog.String("question", question),
			slog.Any("error", err),
		)
		return SentinelAnswerFailed
	}
	return out
}

// generate renders tpl with vars and runs one bounded model call.
func (e *Engine) generate(ctx context.Context, name string, tpl prompt.ChatTemplate, vars map[string]any, temperature float32) (string, error) {
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("summarizer: render %s prompt: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.modelTimeout)
	defer cancel()
	ctx = tracing.WithRun(ctx, name)

	logging.FromContext(ctx).Debug("summarizer: model call",
		slog.String("prompt", name),
		slog.Int("est_tokens", budget.EstimateMessages(msgs)),
	)

	resp, err := e.model.Generate(ctx, msgs, model.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("summarizer: %s: %w", name, err)
	}
	if resp == nil {
		return "", fmt.Errorf("summarizer: %s: empty response", name)
	}
	return resp.Content, nil
}
