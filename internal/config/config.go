// Package config layers newsrag configuration into the process environment.
// Precedence, lowest first: package defaults, YAML file, .env file, real
// environment. Every package then reads its own variables, so a value set in
// the shell always wins.
//
// YAML file search order:
//  1. --config CLI flag (explicit path)
//  2. NEWSRAG_CONFIG environment variable
//  3. ~/.newsrag/config.yaml
//  4. ./newsrag.yaml
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config mirrors the environment variables as a YAML document.
type Config struct {
	Model             ModelConfig     `yaml:"model"`
	Embedding         EmbeddingConfig `yaml:"embedding"`
	FallbackEmbedding EmbeddingConfig `yaml:"fallback_embedding"`
	Naver             NaverConfig     `yaml:"naver"`
	Index             IndexConfig     `yaml:"index"`
	Qdrant            QdrantConfig    `yaml:"qdrant"`
	Data              DataConfig      `yaml:"data"`
	Collect           CollectConfig   `yaml:"collect"`
	Server            ServerConfig    `yaml:"server"`
	Logging           LoggingConfig   `yaml:"logging"`
	Tracing           TracingConfig   `yaml:"tracing"`
}

// ModelConfig holds chat model settings.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, ark, gemini.
	Provider    string       `yaml:"provider"`
	MaxTokens   int          `yaml:"max_tokens"`
	Temperature float32      `yaml:"temperature"`
	Ollama      OllamaConfig `yaml:"ollama"`
	OpenAI      OpenAIConfig `yaml:"openai"`
	Azure       AzureConfig  `yaml:"azure"`
	Ark         ArkConfig    `yaml:"ark"`
	Gemini      GeminiConfig `yaml:"gemini"`
}

type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

type OpenAIConfig struct {
	// APIKey is better supplied through OPENAI_API_KEY.
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

type ArkConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EmbeddingConfig configures one embedding slot.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
}

// NaverConfig holds the news search API credentials.
type NaverConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// IndexConfig selects the vector store.
type IndexConfig struct {
	// Backend is sqlite (default) or qdrant.
	Backend string `yaml:"backend"`
	// Dir is the on-disk index directory for the sqlite backend.
	Dir string `yaml:"dir"`
}

type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	APIKey     string `yaml:"api_key"`
	TLS        bool   `yaml:"tls"`
}

// DataConfig locates the JSON artifacts.
type DataConfig struct {
	Snapshot string `yaml:"snapshot"`
	Corpus   string `yaml:"corpus"`
}

// CollectConfig drives scheduled collection.
type CollectConfig struct {
	// Schedule is the daily run time, HH:MM. "off" disables the scheduler.
	Schedule string   `yaml:"schedule"`
	Keywords []string `yaml:"keywords"`
	Total    int      `yaml:"total"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
	Host      string `yaml:"host"`
}

// envMapping binds each YAML field to its environment variable.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"OPENAI_BASE_URL", func(c *Config) string { return c.Model.OpenAI.BaseURL }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.Ark.BaseURL }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"FALLBACK_EMBEDDING_PROVIDER", func(c *Config) string { return c.FallbackEmbedding.Provider }},
	{"FALLBACK_EMBEDDING_MODEL", func(c *Config) string { return c.FallbackEmbedding.Model }},
	{"FALLBACK_EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.FallbackEmbedding.Dimensions) }},
	{"FALLBACK_EMBEDDING_API_KEY", func(c *Config) string { return c.FallbackEmbedding.APIKey }},
	{"FALLBACK_EMBEDDING_ENDPOINT", func(c *Config) string { return c.FallbackEmbedding.Endpoint }},
	{"NAVER_CLIENT_ID", func(c *Config) string { return c.Naver.ClientID }},
	{"NAVER_CLIENT_SECRET", func(c *Config) string { return c.Naver.ClientSecret }},
	{"VECTOR_BACKEND", func(c *Config) string { return c.Index.Backend }},
	{"NEWSRAG_INDEX_DIR", func(c *Config) string { return c.Index.Dir }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"NEWSRAG_SNAPSHOT", func(c *Config) string { return c.Data.Snapshot }},
	{"NEWSRAG_CORPUS", func(c *Config) string { return c.Data.Corpus }},
	{"NEWSRAG_SCHEDULE", func(c *Config) string { return c.Collect.Schedule }},
	{"NEWSRAG_KEYWORDS", func(c *Config) string { return strings.Join(c.Collect.Keywords, ",") }},
	{"NEWSRAG_COLLECT_TOTAL", func(c *Config) string { return intStr(c.Collect.Total) }},
	{"NEWSRAG_HOST", func(c *Config) string { return c.Server.Host }},
	{"NEWSRAG_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Sources reports which files Load applied.
type Sources struct {
	// DotEnv is the .env path, or "" when none was read.
	DotEnv string
	// YAML is the config file path, or "" when none was found.
	YAML string
}

// Load reads ./.env and then the first YAML file found, applying their
// values to the environment without overwriting variables that are already
// set. Because .env is applied first, it takes precedence over YAML.
func Load(explicitPath string, log *slog.Logger) (Sources, error) {
	var src Sources

	if err := godotenv.Load(); err == nil {
		src.DotEnv = ".env"
		log.Debug("config: loaded .env")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return src, fmt.Errorf("config: failed to read .env: %w", err)
	}

	path := resolveConfigPath(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return src, fmt.Errorf("config: %s: %w", explicitPath, fs.ErrNotExist)
		}
		log.Debug("config: no YAML config file found, using env vars only")
		return src, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return src, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return src, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := apply(&cfg)
	src.YAML = path
	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)
	return src, nil
}

// apply sets every non-zero field of cfg whose env var is empty and returns
// how many were set.
func apply(cfg *Config) int {
	applied := 0
	for _, m := range envMapping {
		v := m.value(cfg)
		if v == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue
		}
		os.Setenv(m.envKey, v)
		applied++
	}
	return applied
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if fileExists(explicit) {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("NEWSRAG_CONFIG"); envPath != "" && fileExists(envPath) {
		return envPath
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".newsrag", "config.yaml")
		if fileExists(p) {
			return p
		}
	}

	if fileExists("newsrag.yaml") {
		return "newsrag.yaml"
	}
	return ""
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// intStr returns "" for zero so unset YAML ints are skipped.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
