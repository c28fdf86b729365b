package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CivicActions/Drupal-ACR/internal/services"
)

// Validate ensures the configuration is usable. Credentials are not checked
// here; stages that call the provider use RequireLLM.
func (c *Config) Validate() error {
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTracker() error {
	if !strings.HasPrefix(c.Tracker.BaseURL, "http://") && !strings.HasPrefix(c.Tracker.BaseURL, "https://") {
		return fmt.Errorf("tracker.base_url must be an http(s) URL, got %q", c.Tracker.BaseURL)
	}
	if c.Tracker.MinDelayMillis < 0 || c.Tracker.MaxDelayMillis < 0 {
		return errors.New("tracker.min_delay_ms and tracker.max_delay_ms must be >= 0")
	}
	if c.Tracker.MaxDelayMillis < c.Tracker.MinDelayMillis {
		return errors.New("tracker.max_delay_ms must be >= tracker.min_delay_ms")
	}
	if c.Tracker.CriteriaDelaySeconds < 0 {
		return errors.New("tracker.criteria_delay_seconds must be >= 0")
	}
	if c.Tracker.CooldownSeconds < 0 {
		return errors.New("tracker.cooldown_seconds must be >= 0")
	}
	for _, step := range c.Tracker.BlockedBackoffSteps {
		if step < 0 {
			return errors.New("tracker.blocked_backoff entries must be >= 0")
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderGemini, ProviderAnthropic, c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

// RequireLLM reports a configuration error when no provider credential could be
// resolved from the config file, the environment, or the key file.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	names := strings.Join(credentialEnvNames(c.LLM.Provider), " or ")
	return services.Wrap(services.ErrConfiguration, "config", "llm credentials",
		fmt.Sprintf("llm.api_key is required; set %s, add it to %s, or edit the config file", names, c.LLM.KeyFile), nil)
}
