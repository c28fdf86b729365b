package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/config"
)

const userAgent = "Drupal-ACR/0.1.0"

// Event names a pipeline milestone.
type Event string

const (
	EventStageCompleted    Event = "stage_completed"
	EventStageFailed       Event = "stage_failed"
	EventPipelineCompleted Event = "pipeline_completed"
	EventTest              Event = "test"
)

// Payload carries event fields. Values are formatted with %v.
type Payload map[string]any

// Service publishes pipeline events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	stage := payload.text("stage")
	switch event {
	case EventStageCompleted:
		body := fmt.Sprintf("✅ %s complete: %s", stage, payload.text("tally"))
		if output := payload.text("output"); output != "" {
			body = fmt.Sprintf("%s\nOutput: %s", body, output)
		}
		return message{
			title: "ACR - Stage Complete",
			body:  body,
			tags:  []string{"acr", stage, "completed"},
		}, true
	case EventStageFailed:
		body := fmt.Sprintf("❌ %s failed: %s", stage, payload.text("error"))
		return message{
			title:    "ACR - Stage Failed",
			body:     body,
			tags:     []string{"acr", stage, "failed"},
			priority: "high",
		}, true
	case EventPipelineCompleted:
		body := fmt.Sprintf("📄 Report ready: %s", payload.text("output"))
		if duration, ok := payload["duration"].(time.Duration); ok {
			body = fmt.Sprintf("%s (%s)", body, duration.Round(time.Second))
		}
		return message{
			title: "ACR - Pipeline Complete",
			body:  body,
			tags:  []string{"acr", "pipeline", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "ACR - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"acr", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
