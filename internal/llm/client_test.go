package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/config"
	"github.com/CivicActions/Drupal-ACR/internal/services"
)

func TestClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/models/demo-model:generateContent" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test" {
			t.Fatalf("expected api key query parameter, got %q", r.URL.RawQuery)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Fatalf("unexpected contents %+v", req.Contents)
		}
		if req.GenerationConfig.MaxOutputTokens != 256 || req.GenerationConfig.Temperature != 0.3 {
			t.Fatalf("unexpected generation config %+v", req.GenerationConfig)
		}
		payload := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"parts": []any{
							map[string]any{"text": "COMPLIANCE_NOTE: ok\n"},
							map[string]any{"text": "DEVELOPER_NOTE: none"},
						},
					},
					"finishReason": "STOP",
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", MaxOutputTokens: 256, Temperature: 0.3})
	text, err := client.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "COMPLIANCE_NOTE: ok\nDEVELOPER_NOTE: none" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestClientClassifiesStatusErrors(t *testing.T) {
	cases := []struct {
		status     int
		overloaded bool
		rateLimit  bool
		class      string
	}{
		{http.StatusServiceUnavailable, true, false, "overloaded"},
		{http.StatusTooManyRequests, false, true, "rate_limited"},
		{http.StatusInternalServerError, false, false, "server"},
		{http.StatusBadRequest, false, false, "other"},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))
		client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "m"})
		_, err := client.Generate(context.Background(), "hi")
		server.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if IsOverloaded(err) != tc.overloaded {
			t.Fatalf("status %d: IsOverloaded=%v", tc.status, IsOverloaded(err))
		}
		if IsRateLimited(err) != tc.rateLimit {
			t.Fatalf("status %d: IsRateLimited=%v", tc.status, IsRateLimited(err))
		}
		if IsNetwork(err) {
			t.Fatalf("status %d: status errors are not network errors", tc.status)
		}
		if Class(err) != tc.class {
			t.Fatalf("status %d: class %q want %q", tc.status, Class(err), tc.class)
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.RetryAfter() != 7*time.Second {
			t.Fatalf("status %d: expected retry-after hint, got %v", tc.status, err)
		}
	}
}

func TestClientEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "m"})
	_, err := client.Generate(context.Background(), "hi")
	var empty *EmptyContentError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyContentError, got %v", err)
	}
	if empty.FinishReason != "SAFETY" {
		t.Fatalf("unexpected finish reason %q", empty.FinishReason)
	}
	if !errors.Is(err, services.ErrParse) {
		t.Fatal("expected parse marker")
	}
}

func TestClientNetworkErrorRedactsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := server.URL
	server.Close()

	client := NewClient(Config{APIKey: "secret-key", BaseURL: base, Model: "m"})
	_, err := client.Generate(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsNetwork(err) {
		t.Fatalf("expected network classification, got %v", err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("api key leaked in error: %v", err)
	}
}

func TestClientTimeoutDefaults(t *testing.T) {
	if got := NewClient(Config{APIKey: "k"}).timeoutDuration(); got != defaultHTTPTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultHTTPTimeout, got)
	}
	if got := NewClient(Config{APIKey: "k", TimeoutSeconds: 5}).timeoutDuration(); got != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", got)
	}
}

func TestClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{Model: "m"}).Generate(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "api key required") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestAnthropicGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "anthropic-key" {
			t.Fatalf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
"content":[{"type":"text","text":"ASSESSMENT: SUPPORTED\nNARRATIVE: Fine."}],
"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":5}}`))
	}))
	defer server.Close()

	client := NewAnthropic(Config{APIKey: "anthropic-key", BaseURL: server.URL, Model: "claude-test"})
	text, err := client.Generate(context.Background(), "assess")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.HasPrefix(text, "ASSESSMENT: SUPPORTED") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestAnthropicOverloadedIsClassified(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(StatusOverloaded)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	client := NewAnthropic(Config{APIKey: "k", BaseURL: server.URL, Model: "claude-test"})
	_, err := client.Generate(context.Background(), "assess")
	if !IsOverloaded(err) {
		t.Fatalf("expected overloaded classification, got %v", err)
	}
	if got := Class(err); got != "overloaded" {
		t.Fatalf("expected class overloaded, got %q", got)
	}
	if calls != 1 {
		t.Fatalf("expected SDK retries disabled, got %d calls", calls)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	p, err := New(config.LLM{Provider: config.ProviderGemini, Model: "m"})
	if err != nil || p.Name() != "gemini" {
		t.Fatalf("unexpected provider %v %v", p, err)
	}
	p, err = New(config.LLM{Provider: config.ProviderAnthropic, Model: "m"})
	if err != nil || p.Name() != "anthropic" {
		t.Fatalf("unexpected provider %v %v", p, err)
	}
	if _, err := New(config.LLM{Provider: "other"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
