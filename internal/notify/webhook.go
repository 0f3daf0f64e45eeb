package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/internal/metrics"
	"github.com/wonny/tradepilot/pkg/httputil"
	"github.com/wonny/tradepilot/pkg/logger"
)

// WebhookPayload is the JSON body posted for each notification
type WebhookPayload struct {
	Message    string    `json:"message"`
	Severity   string    `json:"severity"`
	DurationMs int64     `json:"duration_ms"`
	SentAt     time.Time `json:"sent_at"`
}

// Webhook posts notifications to an HTTP endpoint in the background
type Webhook struct {
	url     string
	client  *httputil.Client
	timeout time.Duration
	logger  *logger.Logger
	wg      sync.WaitGroup
}

// NewWebhook creates a webhook sink
func NewWebhook(url string, client *httputil.Client, timeout time.Duration, log *logger.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:     url,
		client:  client,
		timeout: timeout,
		logger:  log.WithComponent("webhook"),
	}
}

// Notify implements flow.Notifier without blocking the caller
func (w *Webhook) Notify(n flow.Notification) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		if err := w.Send(ctx, n); err != nil {
			w.logger.WithError(err).WithField("severity", n.Severity).Warn("Webhook delivery failed")
		}
	}()
}

// Send posts n and waits for the response
func (w *Webhook) Send(ctx context.Context, n flow.Notification) error {
	payload := WebhookPayload{
		Message:    n.Message,
		Severity:   string(n.Severity),
		DurationMs: n.Duration.Milliseconds(),
		SentAt:     time.Now().UTC(),
	}

	resp, err := w.client.PostJSON(ctx, w.url, payload)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	metrics.Notifications.WithLabelValues("webhook", string(n.Severity)).Inc()
	return nil
}

// Wait blocks until every background delivery has finished
func (w *Webhook) Wait() {
	w.wg.Wait()
}
