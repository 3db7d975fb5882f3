package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autoprint/internal/config"
)

const userAgent = "autoprint/0.1.0"

// Service defines the notification surface exposed to the engine and CLI.
type Service interface {
	NotifyPrinted(ctx context.Context, document, finalPath string) error
	NotifyFailedForReview(ctx context.Context, document, errorKind, reason string) error
	NotifyArchivalProblem(ctx context.Context, document string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		printed:  cfg.Printed,
		failed:   cfg.Failed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	printed  bool
	failed   bool
}

func (n *ntfyService) NotifyPrinted(ctx context.Context, document, finalPath string) error {
	if !n.printed {
		return nil
	}
	message := fmt.Sprintf("🖨️ Printed: %s", strings.TrimSpace(document))
	if finalPath = strings.TrimSpace(finalPath); finalPath != "" {
		message = fmt.Sprintf("%s\nArchived as: %s", message, finalPath)
	}
	return n.send(ctx, payload{
		title:   "autoprint - Printed",
		message: message,
		tags:    []string{"autoprint", "print", "completed"},
	})
}

func (n *ntfyService) NotifyFailedForReview(ctx context.Context, document, errorKind, reason string) error {
	if !n.failed {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Not printed: ")
	builder.WriteString(strings.TrimSpace(document))
	if errorKind = strings.TrimSpace(errorKind); errorKind != "" {
		builder.WriteString(" (")
		builder.WriteString(errorKind)
		builder.WriteString(")")
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		builder.WriteString("\n")
		builder.WriteString(reason)
	}
	builder.WriteString("\nMoved to the failed folder for review")
	return n.send(ctx, payload{
		title:    "autoprint - Needs Review",
		message:  builder.String(),
		tags:     []string{"autoprint", "failed", "review"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyArchivalProblem(ctx context.Context, document string, err error) error {
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "autoprint - Archive Error",
		message:  fmt.Sprintf("Printed %s but could not archive it: %s\nManual cleanup required", strings.TrimSpace(document), reason),
		tags:     []string{"autoprint", "archive", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "autoprint - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"autoprint", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func (noopService) NotifyPrinted(context.Context, string, string) error                 { return nil }
func (noopService) NotifyFailedForReview(context.Context, string, string, string) error { return nil }
func (noopService) NotifyArchivalProblem(context.Context, string, error) error          { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
