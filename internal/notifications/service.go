package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mergeversions/internal/config"
)

const userAgent = "mergeversions/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventBatchCompleted Event = "batch_completed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Known keys per event:
//
//	batch_completed: operation, kind, units, applied, skipped, failed, duration
//	error:           context, error
type Payload map[string]any

// Service publishes events.
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
		cfg:      cfg.Notifications,
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
	cfg      config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchCompleted:
		if !n.cfg.Batches {
			return message{}, false
		}
		units := intValue(payload, "units")
		if units < n.cfg.MinUnits {
			return message{}, false
		}
		return batchMessage(payload, units), true
	case EventError:
		if !n.cfg.Errors {
			return message{}, false
		}
		return errorMessage(payload), true
	case EventTest:
		return message{
			title:    "MergeVersions - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"mergeversions", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func batchMessage(payload Payload, units int) message {
	operation := stringValue(payload, "operation", "batch")
	kind := stringValue(payload, "kind", "items")
	failed := intValue(payload, "failed")

	duration, _ := payload["duration"].(time.Duration)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	body := fmt.Sprintf("%s %s: %d applied, %d skipped of %d in %s",
		operation, kind, intValue(payload, "applied"), intValue(payload, "skipped"), units, duration)
	msg := message{
		title: fmt.Sprintf("MergeVersions - %s Complete", titleCase(operation)),
		tags:  []string{"mergeversions", operation, kind},
	}
	if failed > 0 {
		msg.title += " (with errors)"
		body = fmt.Sprintf("%s, %d failed", body, failed)
		msg.priority = "high"
	}
	msg.body = body
	return msg
}

func errorMessage(payload Payload) message {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if label := stringValue(payload, "context", ""); label != "" {
		builder.WriteString(" with ")
		builder.WriteString(label)
	}
	builder.WriteString(": ")
	builder.WriteString(stringValue(payload, "error", "unknown"))

	return message{
		title:    "MergeVersions - Error",
		body:     builder.String(),
		tags:     []string{"mergeversions", "error", "alert"},
		priority: "high",
	}
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

func stringValue(payload Payload, key, fallback string) string {
	switch v := payload[key].(type) {
	case string:
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	case error:
		if v != nil {
			return strings.TrimSpace(v.Error())
		}
	case fmt.Stringer:
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return fallback
}

func intValue(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
