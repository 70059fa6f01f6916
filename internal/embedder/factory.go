package embedder

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/54b3r/newsrag-go/internal/rag"
)

// Slot names one independently configured embedding model. The persistent
// index and the in-memory similarity engine each own a slot and never share
// vectors.
type Slot struct {
	// Name identifies the slot in logs and errors.
	Name string
	// Prefix is prepended to PROVIDER, MODEL, API_KEY, ENDPOINT and
	// DIMENSIONS to form the slot's env var names.
	Prefix string
}

var (
	// SlotIndex embeds articles stored in the vector index and the queries
	// run against it.
	SlotIndex = Slot{Name: "index", Prefix: "EMBEDDING_"}
	// SlotFallback embeds the static corpus and keywords for the similarity
	// engine.
	SlotFallback = Slot{Name: "fallback", Prefix: "FALLBACK_EMBEDDING_"}
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "bge-m3"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultGeminiModel = "text-embedding-004"

	// defaultOllamaDimensions is the output dimension of bge-m3.
	defaultOllamaDimensions = 1024
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
	// defaultGeminiDimensions is the output dimension of text-embedding-004.
	defaultGeminiDimensions = 768
)

func (s Slot) env(key string) string { return os.Getenv(s.Prefix + key) }

// Backend returns the backend the slot resolves to: <PREFIX>PROVIDER, then
// MODEL_PROVIDER, then ollama.
func (s Slot) Backend() string {
	if b := s.env("PROVIDER"); b != "" {
		return b
	}
	return getEnvOrDefault("MODEL_PROVIDER", "ollama")
}

// Model returns the embedding model name configured for the slot.
func (s Slot) Model() string {
	if m := s.env("MODEL"); m != "" {
		return m
	}
	switch s.Backend() {
	case "openai", "azure":
		return defaultOpenAIModel
	case "gemini":
		return defaultGeminiModel
	default:
		return defaultOllamaModel
	}
}

// Dimensions returns the vector size the slot produces. <PREFIX>DIMENSIONS
// always wins; otherwise the backend default applies. Callers that create a
// vector store up front (Qdrant collection creation) use this value.
func (s Slot) Dimensions() int {
	if v, err := strconv.Atoi(s.env("DIMENSIONS")); err == nil && v > 0 {
		return v
	}
	switch s.Backend() {
	case "ollama":
		return defaultOllamaDimensions
	case "gemini":
		return defaultGeminiDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// apiKey returns the slot's API key, falling back to the chat provider's key.
func (s Slot) apiKey(inherited string) string {
	if k := s.env("API_KEY"); k != "" {
		return k
	}
	return os.Getenv(inherited)
}

// endpoint returns the slot's endpoint, falling back to the chat provider's.
func (s Slot) endpoint(inherited, fallback string) string {
	if e := s.env("ENDPOINT"); e != "" {
		return e
	}
	return getEnvOrDefault(inherited, fallback)
}

// NewFromEnv constructs the embedder for slot. Credentials and endpoints are
// inherited from the chat provider's env vars when the slot does not set its
// own.
func NewFromEnv(ctx context.Context, slot Slot) (rag.Embedder, error) {
	backend := slot.Backend()
	model := slot.Model()

	switch backend {
	case "ollama":
		return NewOllamaEmbedder(&OllamaConfig{
			Host:       slot.endpoint("OLLAMA_HOST", "http://localhost:11434"),
			Model:      model,
			Dimensions: slot.requestedDimensions(),
		}), nil

	case "openai":
		apiKey := slot.apiKey("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: %s slot: openai requires OPENAI_API_KEY or %sAPI_KEY", slot.Name, slot.Prefix)
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    slot.endpoint("OPENAI_BASE_URL", ""),
			APIKey:     apiKey,
			Model:      model,
			Dimensions: slot.requestedDimensions(),
		}), nil

	case "azure":
		apiKey := slot.apiKey("AZURE_OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: %s slot: azure requires AZURE_OPENAI_API_KEY or %sAPI_KEY", slot.Name, slot.Prefix)
		}
		endpoint := slot.endpoint("AZURE_OPENAI_ENDPOINT", "")
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: %s slot: azure requires AZURE_OPENAI_ENDPOINT or %sENDPOINT", slot.Name, slot.Prefix)
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			APIKey:     apiKey,
			Model:      model,
			Dimensions: slot.requestedDimensions(),
			Azure:      true,
			Endpoint:   endpoint,
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-10-21"),
		}), nil

	case "gemini":
		apiKey := slot.apiKey("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: %s slot: gemini requires GOOGLE_API_KEY or %sAPI_KEY", slot.Name, slot.Prefix)
		}
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     apiKey,
			Model:      model,
			Dimensions: slot.requestedDimensions(),
		})

	default:
		return nil, fmt.Errorf("embedder: %s slot: unknown backend %q (valid: ollama, openai, azure, gemini)", slot.Name, backend)
	}
}

// requestedDimensions returns <PREFIX>DIMENSIONS when set, else 0 so the
// model's native size is used.
func (s Slot) requestedDimensions() int {
	v, err := strconv.Atoi(s.env("DIMENSIONS"))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
