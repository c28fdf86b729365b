package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/CivicActions/Drupal-ACR/internal/config"
	"github.com/CivicActions/Drupal-ACR/internal/services"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.Paths.OutputDir)
	}
	if filepath.Base(cfg.Paths.OutputDir) != "output" {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Provider != config.ProviderGemini {
		t.Fatalf("unexpected provider: %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected model: %q", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL == "" {
		t.Fatal("expected gemini base url default")
	}
	want := []time.Duration{2 * time.Minute, 5 * time.Minute, 20 * time.Minute}
	if len(cfg.Tracker.BlockedBackoffSteps) != len(want) {
		t.Fatalf("unexpected backoff steps: %v", cfg.Tracker.BlockedBackoffSteps)
	}
	for i, step := range want {
		if cfg.Tracker.BlockedBackoffSteps[i] != step {
			t.Fatalf("step %d: got %v want %v", i, cfg.Tracker.BlockedBackoffSteps[i], step)
		}
	}
	if err := cfg.RequireLLM(); err != nil {
		t.Fatalf("RequireLLM returned error: %v", err)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	configPath := filepath.Join(tempHome, "config.toml")

	content := `
[paths]
output_dir = "~/reports"

[tracker]
base_url = "https://tracker.example/"
blocked_backoff = ["1s", "2s"]
identities = ["  ", "agent/1.0"]

[llm]
provider = "Anthropic"
api_key = "inline-key"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "reports") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Tracker.BaseURL != "https://tracker.example" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Tracker.BaseURL)
	}
	if len(cfg.Tracker.BlockedBackoffSteps) != 2 || cfg.Tracker.BlockedBackoffSteps[1] != 2*time.Second {
		t.Fatalf("unexpected backoff steps: %v", cfg.Tracker.BlockedBackoffSteps)
	}
	if len(cfg.Tracker.Identities) != 1 || cfg.Tracker.Identities[0] != "agent/1.0" {
		t.Fatalf("unexpected identities: %v", cfg.Tracker.Identities)
	}
	if cfg.LLM.Provider != config.ProviderAnthropic {
		t.Fatalf("unexpected provider: %q", cfg.LLM.Provider)
	}
	if !strings.HasPrefix(cfg.LLM.Model, "claude-") {
		t.Fatalf("expected anthropic default model, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "inline-key" {
		t.Fatalf("expected inline key, got %q", cfg.LLM.APIKey)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadReadsKeyFile(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	keyFile := filepath.Join(tempHome, "secrets.env")
	if err := os.WriteFile(keyFile, []byte("# local secrets\nOTHER=1\nexport GEMINI_API_KEY=\"from-file\"\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	configPath := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\nkey_file = \""+keyFile+"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "from-file" {
		t.Fatalf("expected key from file, got %q", cfg.LLM.APIKey)
	}
}

func TestRequireLLMReportsConfigurationError(t *testing.T) {
	clearCredentialEnv(t)
	cfg := config.Default()
	cfg.LLM.KeyFile = filepath.Join(t.TempDir(), "missing.env")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate without credentials: %v", err)
	}
	err := cfg.RequireLLM()
	if err == nil {
		t.Fatal("expected missing credential error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected env var hint in error, got %q", err.Error())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cases := map[string]string{
		"provider":  "[llm]\nprovider = \"openai\"\n",
		"backoff":   "[tracker]\nblocked_backoff = [\"soon\"]\n",
		"delays":    "[tracker]\nmin_delay_ms = 5000\nmax_delay_ms = 100\n",
		"base_url":  "[tracker]\nbase_url = \"ftp://tracker\"\n",
		"temperate": "[llm]\ntemperature = 3.5\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tempHome, name+".toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "sample", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEncodeMasksAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "secret-value"
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "secret-value") {
		t.Fatal("expected API key to be masked")
	}
	if !strings.Contains(out, "[llm]") {
		t.Fatalf("expected llm section in output: %s", out)
	}
}
