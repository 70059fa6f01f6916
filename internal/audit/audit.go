// Package audit writes one structured log line per newsrag command, recording
// the command, the config sources and the relevant environment. Secret values
// are reduced to "set" or "unset".
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// secretEnvKeys lists environment variable names whose values must never be
// logged. Only presence ("set") or absence ("unset") is recorded.
var secretEnvKeys = map[string]bool{
	"OPENAI_API_KEY":             true,
	"AZURE_OPENAI_API_KEY":       true,
	"ARK_API_KEY":                true,
	"GOOGLE_API_KEY":             true,
	"EMBEDDING_API_KEY":          true,
	"FALLBACK_EMBEDDING_API_KEY": true,
	"NAVER_CLIENT_SECRET":        true,
	"QDRANT_API_KEY":             true,
	"LANGFUSE_PUBLIC_KEY":        true,
	"LANGFUSE_SECRET_KEY":        true,
}

// LogCommandStart logs the start of command with the YAML and .env paths
// that were applied.
func LogCommandStart(ctx context.Context, log *slog.Logger, command, configPath, dotEnvPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
		slog.String("dotenv_file", sanitiseConfigPath(dotEnvPath)),
	}

	for _, key := range auditKeys {
		attrs = append(attrs, slog.String(key, SanitiseKey(key, os.Getenv(key))))
	}

	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start", attrs...)
}

// auditKeys are the variables recorded on every command, in log order.
var auditKeys = []string{
	"MODEL_PROVIDER",
	"OLLAMA_HOST",
	"OLLAMA_MODEL",
	"OPENAI_API_KEY",
	"OPENAI_MODEL",
	"AZURE_OPENAI_API_KEY",
	"AZURE_OPENAI_ENDPOINT",
	"AZURE_OPENAI_DEPLOYMENT",
	"ARK_API_KEY",
	"ARK_MODEL",
	"GOOGLE_API_KEY",
	"GEMINI_MODEL",
	"EMBEDDING_PROVIDER",
	"EMBEDDING_MODEL",
	"EMBEDDING_API_KEY",
	"FALLBACK_EMBEDDING_PROVIDER",
	"FALLBACK_EMBEDDING_MODEL",
	"NAVER_CLIENT_ID",
	"NAVER_CLIENT_SECRET",
	"VECTOR_BACKEND",
	"NEWSRAG_INDEX_DIR",
	"QDRANT_HOST",
	"QDRANT_COLLECTION",
	"QDRANT_API_KEY",
	"NEWSRAG_SCHEDULE",
	"LOG_LEVEL",
	"LANGFUSE_PUBLIC_KEY",
	"LANGFUSE_SECRET_KEY",
}

// SanitiseKey returns "set" or "unset" for known secret keys, or the actual
// value for non-secret keys. This is safe to use in log messages.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
