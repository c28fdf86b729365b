package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

const (
	providerGemini         = "gemini"
	defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultHTTPTimeout     = 60 * time.Second
	defaultMaxOutputTokens = 1024
	snippetLimit           = 160
)

// Client wraps the Gemini generateContent API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	opts       options
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	o := collectOptions(opts)
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:          strings.TrimSpace(cfg.APIKey),
			BaseURL:         strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:           strings.TrimSpace(cfg.Model),
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
			TimeoutSeconds:  cfg.TimeoutSeconds,
		},
		httpClient: o.httpClient,
		opts:       o,
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultGeminiBaseURL
	}
	if client.cfg.MaxOutputTokens <= 0 {
		client.cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	return client
}

// Name implements Provider.
func (c *Client) Name() string {
	return providerGemini
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn and returns the concatenated
// text of the first candidate that has any.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("gemini generate: prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("gemini generate: api key required")
	}
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: c.cfg.MaxOutputTokens,
			Temperature:     c.cfg.Temperature,
		},
	}
	text, err := c.generateOnce(ctx, payload)
	c.opts.metrics.Request(providerGemini, outcomeLabel(err))
	return text, err
}

func (c *Client) endpoint() (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model+":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request: build url: %w", err)
	}
	return endpoint + "?" + url.Values{"key": {c.cfg.APIKey}}.Encode(), nil
}

func (c *Client) generateOnce(ctx context.Context, payload generateRequest) (string, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("gemini request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: http error (timeout=%s): %w", c.timeoutDuration(), redactKey(err, c.cfg.APIKey))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{
			Provider:   providerGemini,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Wait:       parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("gemini request: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", &StatusError{
			Provider:   providerGemini,
			StatusCode: decoded.Error.Code,
			Body:       strings.TrimSpace(decoded.Error.Message),
		}
	}
	text, finishReason := extractCandidateText(decoded)
	if text == "" {
		if finishReason == "" && decoded.PromptFeedback != nil {
			finishReason = decoded.PromptFeedback.BlockReason
		}
		return "", &EmptyContentError{
			Provider:     providerGemini,
			FinishReason: finishReason,
			Snippet:      textutil.Snippet(string(body), snippetLimit),
		}
	}
	return text, nil
}

func extractCandidateText(resp generateResponse) (string, string) {
	var finishReason string
	for _, candidate := range resp.Candidates {
		if finishReason == "" {
			finishReason = strings.TrimSpace(candidate.FinishReason)
		}
		var b strings.Builder
		for _, p := range candidate.Content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, finishReason
		}
	}
	return "", finishReason
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

// redactKey keeps the API key out of url.Error messages, which embed the
// request URL.
func redactKey(err error, key string) error {
	var urlErr *url.Error
	if key == "" || !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	redacted.URL = strings.ReplaceAll(redacted.URL, url.QueryEscape(key), "REDACTED")
	return &redacted
}
