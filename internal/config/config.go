package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains artifact and log locations.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	MetricsFile string `toml:"metrics_file"`
}

// Tracker contains settings for the issue tracker scraper.
type Tracker struct {
	BaseURL               string   `toml:"base_url"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	MaxPages              int      `toml:"max_pages"`
	MinDelayMillis        int      `toml:"min_delay_ms"`
	MaxDelayMillis        int      `toml:"max_delay_ms"`
	CriteriaDelaySeconds  int      `toml:"criteria_delay_seconds"`
	CooldownEvery         int      `toml:"cooldown_every"`
	CooldownSeconds       int      `toml:"cooldown_seconds"`
	BlockedBackoff        []string `toml:"blocked_backoff"`
	Identities            []string `toml:"identities"`

	// BlockedBackoffSteps is BlockedBackoff parsed during normalization.
	BlockedBackoffSteps []time.Duration `toml:"-"`
}

// LLM contains the generative-text provider settings shared by the summarizer
// and aggregator.
type LLM struct {
	Provider          string  `toml:"provider"`
	APIKey            string  `toml:"api_key"`
	KeyFile           string  `toml:"key_file"`
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	MaxOutputTokens   int     `toml:"max_output_tokens"`
	Temperature       float64 `toml:"temperature"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	CallDelaySeconds  int     `toml:"call_delay_seconds"`
	CallJitterSeconds int     `toml:"call_jitter_seconds"`
}

// Aggregator contains settings for the per-criterion assessment stage.
type Aggregator struct {
	OverloadCooldownSeconds int `toml:"overload_cooldown_seconds"`
}

// Renderer contains settings for the report document.
type Renderer struct {
	HeaderPath     string `toml:"header_path"`
	ProductName    string `toml:"product_name"`
	ProductVersion string `toml:"product_version"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for the pipeline.
//
// Configuration sections by subsystem:
//   - Paths: artifact directory, log directory, metrics textfile
//   - Tracker: search endpoint, pacing, and 403 backoff schedule
//   - LLM: provider, credentials, and call pacing
//   - Aggregator: deferred retry cooldown
//   - Renderer: report header and product metadata
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tracker       Tracker       `toml:"tracker"`
	LLM           LLM           `toml:"llm"`
	Aggregator    Aggregator    `toml:"aggregator"`
	Renderer      Renderer      `toml:"renderer"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the artifact directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.OutputDir, err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML with the API key masked.
func (c *Config) Encode() (string, error) {
	clone := *c
	if clone.LLM.APIKey != "" {
		clone.LLM.APIKey = "********"
	}
	data, err := toml.Marshal(clone)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
