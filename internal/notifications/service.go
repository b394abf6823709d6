// Package notifications sends optional ntfy push notifications for pipeline
// events. When no topic is configured a noop implementation is returned, so
// callers never branch on configuration.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stamper/internal/config"
)

const userAgent = "Stamper/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyFolderProcessed(ctx context.Context, folderName string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		notifyProcessed: cfg.Notifications.Processed,
		notifyErrors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	notifyProcessed bool
	notifyErrors    bool
}

func (n *ntfyService) NotifyFolderProcessed(ctx context.Context, folderName string) error {
	if !n.notifyProcessed {
		return nil
	}
	data := payload{
		title:   "Stamper - Folder Processed",
		message: fmt.Sprintf("Final video published for %s", strings.TrimSpace(folderName)),
		tags:    []string{"stamper", "processed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.notifyErrors || err == nil {
		return nil
	}
	data := payload{
		title:    "Stamper - Error",
		message:  fmt.Sprintf("%s: %v", strings.TrimSpace(contextLabel), err),
		tags:     []string{"stamper", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "Stamper - Test",
		message: "Notification delivery works.",
		tags:    []string{"stamper", "test"},
	}
	return n.send(ctx, data)
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
	return nil
}

type noopService struct{}

func (noopService) NotifyFolderProcessed(context.Context, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
