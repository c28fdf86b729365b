package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTracker(); err != nil {
		return err
	}
	if err := c.normalizeLLM(); err != nil {
		return err
	}
	if c.Aggregator.OverloadCooldownSeconds < 0 {
		c.Aggregator.OverloadCooldownSeconds = 0
	}
	c.Renderer.HeaderPath = strings.TrimSpace(c.Renderer.HeaderPath)
	if c.Renderer.HeaderPath != "" {
		var err error
		if c.Renderer.HeaderPath, err = expandPath(c.Renderer.HeaderPath); err != nil {
			return fmt.Errorf("renderer.header_path: %w", err)
		}
	}
	if strings.TrimSpace(c.Renderer.ProductName) == "" {
		c.Renderer.ProductName = defaultProductName
	}
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MetricsFile, err = expandPath(strings.TrimSpace(c.Paths.MetricsFile)); err != nil {
		return fmt.Errorf("paths.metrics_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracker() error {
	c.Tracker.BaseURL = strings.TrimRight(strings.TrimSpace(c.Tracker.BaseURL), "/")
	if c.Tracker.BaseURL == "" {
		c.Tracker.BaseURL = defaultTrackerBaseURL
	}
	if c.Tracker.RequestTimeoutSeconds <= 0 {
		c.Tracker.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if c.Tracker.MaxPages <= 0 {
		c.Tracker.MaxPages = defaultMaxPages
	}
	if c.Tracker.CooldownEvery <= 0 {
		c.Tracker.CooldownEvery = defaultCooldownEvery
	}
	if len(c.Tracker.BlockedBackoff) == 0 {
		c.Tracker.BlockedBackoff = append([]string(nil), defaultBlockedBackoff...)
	}
	steps := make([]time.Duration, 0, len(c.Tracker.BlockedBackoff))
	for _, raw := range c.Tracker.BlockedBackoff {
		step, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("tracker.blocked_backoff: %q: %w", raw, err)
		}
		steps = append(steps, step)
	}
	c.Tracker.BlockedBackoffSteps = steps

	identities := make([]string, 0, len(c.Tracker.Identities))
	for _, identity := range c.Tracker.Identities {
		if identity = strings.TrimSpace(identity); identity != "" {
			identities = append(identities, identity)
		}
	}
	if len(identities) == 0 {
		identities = append(identities, defaultIdentities...)
	}
	c.Tracker.Identities = identities
	return nil
}

func (c *Config) normalizeLLM() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultGeminiBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultGeminiModel
		}
	case ProviderAnthropic:
		if c.LLM.Model == "" {
			c.LLM.Model = defaultAnthropicModel
		}
	}
	if c.LLM.MaxOutputTokens <= 0 {
		c.LLM.MaxOutputTokens = defaultMaxOutputTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.CallDelaySeconds < 0 {
		c.LLM.CallDelaySeconds = 0
	}
	if c.LLM.CallJitterSeconds < 0 {
		c.LLM.CallJitterSeconds = 0
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	envNames := credentialEnvNames(c.LLM.Provider)
	if c.LLM.APIKey == "" {
		for _, name := range envNames {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.KeyFile = strings.TrimSpace(c.LLM.KeyFile)
	if c.LLM.APIKey == "" && c.LLM.KeyFile != "" {
		value, err := readKeyFile(c.LLM.KeyFile, envNames...)
		if err != nil {
			return fmt.Errorf("llm.key_file: %w", err)
		}
		c.LLM.APIKey = value
	}
	return nil
}

func credentialEnvNames(provider string) []string {
	if provider == ProviderAnthropic {
		return []string{"ANTHROPIC_API_KEY"}
	}
	return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
