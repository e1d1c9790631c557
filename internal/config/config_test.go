package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
auth:
  secret: file-secret
ai:
  provider: anthropic
  model: claude-3-5-haiku-latest
  maxTokens: 512
log:
  level: debug
session:
  tickInterval: 500ms
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected server/redis config %+v", cfg)
	}
	if cfg.Auth.Secret != "file-secret" {
		t.Fatalf("empty AUTH_SECRET should not override file, got %q", cfg.Auth.Secret)
	}
	if cfg.AI.APIKey != "env-key" || cfg.AI.MaxTokens != 512 {
		t.Fatalf("unexpected ai config %+v", cfg.AI)
	}
	if got := TTLDuration(cfg.Session.TickInterval, time.Second); got != 500*time.Millisecond {
		t.Fatalf("tick interval = %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("AUTH_SECRET", "env-secret")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should be tolerated: %v", err)
	}
	if cfg.Auth.Secret != "env-secret" {
		t.Fatalf("expected env secret, got %q", cfg.Auth.Secret)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty = %v", got)
	}
	if got := TTLDuration("nope", time.Minute); got != time.Minute {
		t.Fatalf("invalid = %v", got)
	}
}
