package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"concierge/internal/config"
)

const userAgent = "Concierge/0.1.0"

// Event identifies a queue milestone worth pushing to an operator.
type Event string

const (
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventQueueStopped   Event = "queue_stopped"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service publishes queue events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a noop when no topic is
// configured. Events disabled in config are dropped before any request.
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
		queue:    cfg.Notifications.Queue,
		errors:   cfg.Notifications.Errors,
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
	queue    bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventQueueStarted, EventQueueCompleted, EventQueueStopped:
		return n.queue
	case EventError:
		return n.errors
	default:
		return true
	}
}

func format(event Event, payload Payload) (message, bool) {
	queueID := shortQueueID(payload.text("queueId"))
	switch event {
	case EventQueueStarted:
		return message{
			title: "Concierge - Enrichment Started",
			body: fmt.Sprintf("Queue %s started: %d guests, concurrency %d",
				queueID, payload.count("total"), payload.count("concurrency")),
			tags: []string{"concierge", "queue", "started"},
		}, true
	case EventQueueCompleted:
		failed := payload.count("failed")
		title := "Concierge - Enrichment Complete"
		if failed > 0 {
			title = "Concierge - Enrichment Complete (with errors)"
		}
		return message{
			title: title,
			body: fmt.Sprintf("Queue %s finished %d guests in %s, %d errors",
				queueID, payload.count("completed"), formatDuration(payload.duration("duration")), failed),
			tags: []string{"concierge", "queue", "completed"},
		}, true
	case EventQueueStopped:
		return message{
			title: "Concierge - Enrichment Stopped",
			body: fmt.Sprintf("Queue %s stopped after %d of %d guests",
				queueID, payload.count("completed"), payload.count("total")),
			tags: []string{"concierge", "queue", "stopped"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := strings.TrimSpace(payload.text("context")); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if errText := strings.TrimSpace(payload.text("error")); errText != "" {
			b.WriteString(errText)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Concierge - Error",
			body:     b.String(),
			tags:     []string{"concierge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Concierge - Test",
			body:     "Notification system test",
			tags:     []string{"concierge", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
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

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) count(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) duration(key string) time.Duration {
	if v, ok := p[key].(time.Duration); ok {
		return v
	}
	return 0
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func shortQueueID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
