package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/config"
	"github.com/CivicActions/Drupal-ACR/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventStageCompleted, notifications.Payload{"stage": "collect"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "stage completed",
			event: notifications.EventStageCompleted,
			payload: notifications.Payload{
				"stage":  "summarize",
				"tally":  "10 succeeded, 1 failed, 0 placeholder, 0 unresolved",
				"output": "output/issue_summaries_2025-03-04_10-30.csv",
			},
			expectTitle:   "ACR - Stage Complete",
			expectMessage: "✅ summarize complete: 10 succeeded, 1 failed, 0 placeholder, 0 unresolved\nOutput: output/issue_summaries_2025-03-04_10-30.csv",
			expectTags:    "acr,summarize,completed",
		},
		{
			name:  "stage failed",
			event: notifications.EventStageFailed,
			payload: notifications.Payload{
				"stage": "aggregate",
				"error": errors.New("no summaries artifact"),
			},
			expectTitle:    "ACR - Stage Failed",
			expectMessage:  "❌ aggregate failed: no summaries artifact",
			expectTags:     "acr,aggregate,failed",
			expectPriority: "high",
		},
		{
			name:  "pipeline completed",
			event: notifications.EventPipelineCompleted,
			payload: notifications.Payload{
				"output":   "output/openacr_2025-03-04_12-00.yaml",
				"duration": 95*time.Second + 400*time.Millisecond,
			},
			expectTitle:   "ACR - Pipeline Complete",
			expectMessage: "📄 Report ready: output/openacr_2025-03-04_12-00.yaml (1m35s)",
			expectTags:    "acr,pipeline,completed",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "ACR - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "acr,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresUnknownEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for unknown event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Event("disc_detected"), notifications.Payload{"value": "ignored"}); err != nil {
		t.Fatalf("expected no error for unknown event, got %v", err)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
