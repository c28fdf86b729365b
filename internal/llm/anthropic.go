package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const providerAnthropic = "anthropic"

// AnthropicClient wraps the Anthropic Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	opts        options
}

// NewAnthropic constructs an Anthropic provider. SDK retries are disabled so
// retry policy stays with the caller.
func NewAnthropic(cfg Config, opts ...Option) *AnthropicClient {
	o := collectOptions(opts)
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	requestOptions := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(base))
	}
	if o.httpClient != nil {
		requestOptions = append(requestOptions, option.WithHTTPClient(o.httpClient))
	}
	maxTokens := int64(cfg.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(requestOptions...),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		opts:        o,
	}
}

// Name implements Provider.
func (c *AnthropicClient) Name() string {
	return providerAnthropic
}

// Generate sends prompt as a single user message and returns the text blocks.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := c.generateOnce(ctx, strings.TrimSpace(prompt))
	c.opts.metrics.Request(providerAnthropic, outcomeLabel(err))
	return text, err
}

func (c *AnthropicClient) generateOnce(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", errors.New("anthropic generate: prompt required")
	}
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			statusErr := &StatusError{
				Provider:   providerAnthropic,
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Error(),
			}
			if apiErr.Response != nil {
				statusErr.Wait = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return "", statusErr
		}
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if text := strings.TrimSpace(b.String()); text != "" {
		return text, nil
	}
	return "", &EmptyContentError{
		Provider:     providerAnthropic,
		FinishReason: string(message.StopReason),
		Snippet:      "<empty>",
	}
}
