package audit

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSanitiseKey_Secret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("OPENAI_API_KEY", "sk-abc123"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := SanitiseKey("OPENAI_API_KEY", ""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseKey_NonSecret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("MODEL_PROVIDER", "azure"); got != "azure" {
		t.Errorf("expected 'azure', got %q", got)
	}
	if got := SanitiseKey("MODEL_PROVIDER", ""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseKey_NaverSecret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("NAVER_CLIENT_SECRET", "abc"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := SanitiseKey("NAVER_CLIENT_ID", "my-id"); got != "my-id" {
		t.Errorf("expected client id verbatim, got %q", got)
	}
}

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Setenv("NAVER_CLIENT_SECRET", "super-secret-value")
	t.Setenv("VECTOR_BACKEND", "sqlite")

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	LogCommandStart(context.Background(), log, "collect", "", ".env")

	out := buf.String()
	if strings.Contains(out, "super-secret-value") {
		t.Fatalf("secret leaked into audit line: %s", out)
	}
	for _, want := range []string{`"command":"collect"`, `"NAVER_CLIENT_SECRET":"set"`, `"VECTOR_BACKEND":"sqlite"`, `"config_file":"none"`, `"dotenv_file":".env"`} {
		if !strings.Contains(out, want) {
			t.Errorf("audit line missing %s: %s", want, out)
		}
	}
}

func TestPresence(t *testing.T) {
	t.Parallel()
	if got := presence("something"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := presence(""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := home + "/.newsrag/config.yaml"
		if got := sanitiseConfigPath(p); got != "~/.newsrag/config.yaml" {
			t.Errorf("expected '~/.newsrag/config.yaml', got %q", got)
		}
	}
}
