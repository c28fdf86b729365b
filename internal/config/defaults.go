package config

const (
	defaultConfigPath              = "~/.config/acr/config.toml"
	projectConfigName              = "acr.toml"
	defaultOutputDir               = "./output"
	defaultTrackerBaseURL          = "https://www.drupal.org"
	defaultRequestTimeoutSeconds   = 30
	defaultMaxPages                = 10
	defaultMinDelayMillis          = 1000
	defaultMaxDelayMillis          = 3000
	defaultCriteriaDelaySeconds    = 10
	defaultCooldownEvery           = 5
	defaultCooldownSeconds         = 20
	defaultLLMProvider             = ProviderGemini
	defaultLLMKeyFile              = ".env"
	defaultGeminiBaseURL           = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel             = "gemini-2.0-flash"
	defaultAnthropicModel          = "claude-sonnet-4-5-20250929"
	defaultMaxOutputTokens         = 1024
	defaultTemperature             = 0.2
	defaultLLMTimeoutSeconds       = 60
	defaultCallDelaySeconds        = 4
	defaultCallJitterSeconds       = 2
	defaultOverloadCooldownSeconds = 30
	defaultProductName             = "Drupal"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultNotifyRequestTimeout    = 10

	// ProviderGemini selects the Google generateContent endpoint.
	ProviderGemini = "gemini"
	// ProviderAnthropic selects the Anthropic Messages API.
	ProviderAnthropic = "anthropic"
)

var (
	defaultBlockedBackoff = []string{"2m", "5m", "20m"}
	defaultIdentities     = []string{
		"curl/8.5.0",
		"Wget/1.21.4",
		"HTTPie/3.2.2",
		"python-requests/2.31.0",
		"libwww-perl/6.72",
		"lynx/2.9.0",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
		},
		Tracker: Tracker{
			BaseURL:               defaultTrackerBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			MaxPages:              defaultMaxPages,
			MinDelayMillis:        defaultMinDelayMillis,
			MaxDelayMillis:        defaultMaxDelayMillis,
			CriteriaDelaySeconds:  defaultCriteriaDelaySeconds,
			CooldownEvery:         defaultCooldownEvery,
			CooldownSeconds:       defaultCooldownSeconds,
			BlockedBackoff:        append([]string(nil), defaultBlockedBackoff...),
			Identities:            append([]string(nil), defaultIdentities...),
		},
		LLM: LLM{
			Provider:          defaultLLMProvider,
			KeyFile:           defaultLLMKeyFile,
			MaxOutputTokens:   defaultMaxOutputTokens,
			Temperature:       defaultTemperature,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			CallDelaySeconds:  defaultCallDelaySeconds,
			CallJitterSeconds: defaultCallJitterSeconds,
		},
		Aggregator: Aggregator{
			OverloadCooldownSeconds: defaultOverloadCooldownSeconds,
		},
		Renderer: Renderer{
			ProductName: defaultProductName,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
	}
}
