package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/CivicActions/Drupal-ACR/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Pacing delays are zeroed so stages never wait on real timers.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = ""
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.KeyFile = ""
	cfgVal.Tracker.MinDelayMillis = 0
	cfgVal.Tracker.MaxDelayMillis = 0
	cfgVal.Tracker.CriteriaDelaySeconds = 0
	cfgVal.Tracker.CooldownSeconds = 0
	cfgVal.Tracker.BlockedBackoff = []string{"0s"}
	cfgVal.LLM.CallDelaySeconds = 0
	cfgVal.LLM.CallJitterSeconds = 0
	cfgVal.Aggregator.OverloadCooldownSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIKey sets the provider credential on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = key
	}
}

// WithTrackerURL points the collector at a fake tracker.
func WithTrackerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracker.BaseURL = url
	}
}

// WithLLMBaseURL points the gemini provider at a fake endpoint.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.Provider = config.ProviderGemini
		b.cfg.LLM.BaseURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

// WriteConfig encodes cfg as TOML next to its temp directories and returns the
// file path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "acr.toml")
	WriteFile(t, path, string(data))
	return path
}
