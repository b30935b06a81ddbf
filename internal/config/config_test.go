package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_AI_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearKeyEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "gemini" {
		t.Fatalf("provider=%q, want %q", cfg.Provider, "gemini")
	}
	if cfg.Gemini.Model != DefaultGeminiModel {
		t.Fatalf("gemini model=%q, want %q", cfg.Gemini.Model, DefaultGeminiModel)
	}
	if len(cfg.Gemini.Safety) != 4 || cfg.Gemini.Safety["harassment"] != "BLOCK_NONE" {
		t.Fatalf("safety=%v", cfg.Gemini.Safety)
	}
	if cfg.Serve.Addr != ":8080" || cfg.Serve.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Fatalf("serve=%+v", cfg.Serve)
	}
	if cfg.Client.Timeout != 10*time.Minute {
		t.Fatalf("timeout=%v, want 10m", cfg.Client.Timeout)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("TALE_LLM_SERVE_ADDR", "127.0.0.1:9999")
	t.Setenv("STORY_KEY", "from-env")

	path := writeConfig(t, `provider: OpenAI
openai:
  api_key: ${STORY_KEY}
  model: gpt-4o
client:
  timeout: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Fatalf("provider=%q, want %q", cfg.Provider, "openai")
	}
	if cfg.OpenAI.APIKey != "from-env" {
		t.Fatalf("api key=%q, want %q", cfg.OpenAI.APIKey, "from-env")
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Fatalf("model=%q", cfg.OpenAI.Model)
	}
	if cfg.Serve.Addr != "127.0.0.1:9999" {
		t.Fatalf("addr=%q, want env override", cfg.Serve.Addr)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Fatalf("timeout=%v, want 30s", cfg.Client.Timeout)
	}
}

func TestLoadKeyEnvFallback(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	cfg, err := Load(writeConfig(t, "provider: gemini\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.APIKey != "gem-key" {
		t.Fatalf("api key=%q, want %q", cfg.Gemini.APIKey, "gem-key")
	}
	if err := cfg.RequireCredential(); err != nil {
		t.Fatalf("RequireCredential: %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestRequireCredential(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"gemini missing", Config{Provider: "gemini"}, "GOOGLE_AI_API_KEY"},
		{"openai missing", Config{Provider: "openai"}, "OPENAI_API_KEY"},
		{"anthropic present", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "k"}}, ""},
		{"debug needs nothing", Config{Provider: "debug"}, ""},
		{"unknown", Config{Provider: "llama"}, "unknown provider"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.RequireCredential()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()

	cfg.ApplyOverrides("openai", "gpt-4o")
	if cfg.Provider != "openai" {
		t.Fatalf("provider=%q, want %q", cfg.Provider, "openai")
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Fatalf("openai model=%q, want %q", cfg.OpenAI.Model, "gpt-4o")
	}
	if cfg.Gemini.Model != DefaultGeminiModel {
		t.Fatalf("gemini model changed unexpectedly: %q", cfg.Gemini.Model)
	}

	cfg.ApplyOverrides("", "gpt-5.2-high")
	if cfg.Provider != "openai" {
		t.Fatalf("provider changed unexpectedly: %q", cfg.Provider)
	}
	if cfg.OpenAI.Model != "gpt-5.2-high" {
		t.Fatalf("openai model=%q, want %q", cfg.OpenAI.Model, "gpt-5.2-high")
	}

	cfg.ApplyOverrides("debug", "burst")
	if cfg.Debug.Preset != "burst" {
		t.Fatalf("debug preset=%q, want %q", cfg.Debug.Preset, "burst")
	}
}

func TestMasked(t *testing.T) {
	cfg := Default()
	cfg.Gemini.APIKey = "AIzaSyExampleKey1234"
	cfg.Serve.Token = "short"

	m := cfg.Masked()
	if m.Gemini.APIKey != "AIza****1234" {
		t.Fatalf("masked key=%q", m.Gemini.APIKey)
	}
	if m.Serve.Token != "****" {
		t.Fatalf("masked token=%q", m.Serve.Token)
	}
	if cfg.Gemini.APIKey != "AIzaSyExampleKey1234" {
		t.Fatal("Masked modified the original")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Provider = "anthropic"

	if err := Save(cfg, path, false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(cfg, path, false); err == nil {
		t.Fatal("expected error when config already exists")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Provider != "anthropic" || loaded.Client.Timeout != DefaultTimeout {
		t.Fatalf("loaded=%+v", loaded)
	}
}
