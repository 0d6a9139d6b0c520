package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postroll/internal/config"
)

const userAgent = "postroll/1.0"

// Event identifies the kind of notification.
type Event string

const (
	EventVideoCompleted Event = "video_completed"
	EventVideoFailed    Event = "video_failed"
	EventTest           Event = "test"
)

// Payload carries the job details rendered into a message.
type Payload struct {
	VideoID   int64
	SourceKey string
	Elapsed   time.Duration
	// Stage is where a failed job stopped.
	Stage string
	Error string
}

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return Nop{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Nop{}
	}
	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		notifySuccess: cfg.Notifications.NotifySuccess,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	notifySuccess bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, p Payload) (message, bool) {
	switch event {
	case EventVideoCompleted:
		if !n.notifySuccess {
			return message{}, false
		}
		return message{
			title: "postroll - Video Ready",
			body:  fmt.Sprintf("Video %d processed in %s\nSource: %s", p.VideoID, roundElapsed(p.Elapsed), p.SourceKey),
			tags:  []string{"postroll", "video", "completed"},
		}, true
	case EventVideoFailed:
		body := fmt.Sprintf("Video %d failed", p.VideoID)
		if stage := strings.TrimSpace(p.Stage); stage != "" {
			body += " during " + stage
		}
		if p.Error != "" {
			body += ": " + strings.TrimSpace(p.Error)
		}
		if p.SourceKey != "" {
			body += "\nSource: " + p.SourceKey
		}
		return message{
			title:    "postroll - Video Failed",
			body:     body,
			tags:     []string{"postroll", "video", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "postroll - Test",
			body:     "Notification system test",
			tags:     []string{"postroll", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func roundElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", msg.title)
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
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

// Nop discards every notification.
type Nop struct{}

func (Nop) Publish(context.Context, Event, Payload) error { return nil }
