package embedder

import (
	"fmt"
	"log/slog"
	"strings"
)

// chatModelMarkers are name fragments of chat/completion models that are not
// embedding models.
var chatModelMarkers = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama",
	"mistral",
	"mixtral",
	"gemma",
	"phi3",
	"claude",
	"deepseek",
	"qwen",
	"solar",
	"exaone",
}

// looksLikeChatModel reports whether model resembles a chat model rather
// than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "embed") || strings.HasPrefix(lower, "bge") {
		return false
	}
	for _, marker := range chatModelMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Validate is a startup check for one slot. It returns an error when the
// backend is unknown and warns when the model name looks like a chat model.
// Missing credentials are reported by NewFromEnv.
func Validate(log *slog.Logger, slot Slot) error {
	backend := slot.Backend()
	switch backend {
	case "ollama", "openai", "azure", "gemini":
	default:
		return fmt.Errorf("embedder: %s slot: unknown backend %q", slot.Name, backend)
	}

	if slot.env("PROVIDER") == "" && backend != "ollama" {
		log.Warn("embedder: slot inherits MODEL_PROVIDER",
			slog.String("slot", slot.Name),
			slog.String("backend", backend),
			slog.String("hint", "set "+slot.Prefix+"PROVIDER to be explicit"),
		)
	}

	if model := slot.Model(); looksLikeChatModel(model) {
		log.Warn("embedder: model looks like a chat model, embeddings will likely be poor",
			slog.String("slot", slot.Name),
			slog.String("model", model),
		)
	}
	return nil
}
