package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"concierge/internal/config"
	"concierge/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventQueueStarted, notifications.Payload{"total": 3}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
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
			name:  "queue started",
			event: notifications.EventQueueStarted,
			payload: notifications.Payload{
				"queueId":     "0123456789abcdef",
				"total":       12,
				"concurrency": 3,
			},
			expectTitle:   "Concierge - Enrichment Started",
			expectMessage: "Queue 01234567 started: 12 guests, concurrency 3",
			expectTags:    "concierge,queue,started",
		},
		{
			name:  "queue completed with errors",
			event: notifications.EventQueueCompleted,
			payload: notifications.Payload{
				"queueId":   "q1",
				"completed": 10,
				"failed":    2,
				"duration":  90 * time.Second,
			},
			expectTitle:   "Concierge - Enrichment Complete (with errors)",
			expectMessage: "Queue q1 finished 10 guests in 1m30s, 2 errors",
			expectTags:    "concierge,queue,completed",
		},
		{
			name:  "queue stopped",
			event: notifications.EventQueueStopped,
			payload: notifications.Payload{
				"queueId":   "q2",
				"completed": 4,
				"total":     9,
			},
			expectTitle:   "Concierge - Enrichment Stopped",
			expectMessage: "Queue q2 stopped after 4 of 9 guests",
			expectTags:    "concierge,queue,stopped",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "guest 42",
				"error":   errors.New("provider quota exceeded"),
			},
			expectTitle:    "Concierge - Error",
			expectMessage:  "Error with guest 42: provider quota exceeded",
			expectTags:     "concierge,error,alert",
			expectPriority: "high",
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
				body, _ := io.ReadAll(r.Body)
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", captured.title, tc.expectTitle)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("body = %q, want %q", captured.body, tc.expectMessage)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", captured.tags, tc.expectTags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", captured.priority, tc.expectPriority)
			}
		})
	}
}

func TestDisabledEventsSkipRequests(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Queue = false
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventQueueCompleted, notifications.Payload{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := svc.Publish(context.Background(), notifications.EventError, notifications.Payload{"error": "boom"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected only the error event to be sent, got %d requests", hits.Load())
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
