package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/CivicActions/Drupal-ACR/internal/config"
	"github.com/CivicActions/Drupal-ACR/internal/metrics"
	"github.com/CivicActions/Drupal-ACR/internal/services"
)

// Provider issues a single text-generation call. Implementations do not retry;
// callers apply their own per-error-class policies.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config captures the runtime settings shared by every provider.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Temperature     float64
	TimeoutSeconds  int
}

// ConfigFrom copies the provider settings out of the application config.
func ConfigFrom(cfg config.LLM) Config {
	return Config{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
		TimeoutSeconds:  cfg.TimeoutSeconds,
	}
}

// Option customizes a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	metrics    metrics.Recorder
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithMetrics records one request outcome per call.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

func collectOptions(opts []Option) options {
	o := options{metrics: metrics.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the provider named in cfg.
func New(cfg config.LLM, opts ...Option) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewClient(ConfigFrom(cfg), opts...), nil
	case config.ProviderAnthropic:
		return NewAnthropic(ConfigFrom(cfg), opts...), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "llm", "provider",
			fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return Class(err)
}
