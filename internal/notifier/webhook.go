package notifier

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	appLog "calnotify/internal/log"
	"calnotify/internal/message"
)

const (
	defaultTimeout = 30 * time.Second
	successBody    = "ok"
	maxBodyInError = 200
	maxBodyRead    = 4096
	userAgent      = "calnotify"
)

// WebhookNotifier posts messages to incoming webhooks.
type WebhookNotifier struct {
	httpClient *http.Client
}

// NewWebhookNotifier creates a notifier whose requests are bounded by
// timeout. A non-positive timeout uses the default of 30s.
func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WebhookNotifier{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify serializes p and posts it as the form field "payload". It
// returns nil only when the webhook answers with exactly "ok".
func (n *WebhookNotifier) Notify(ctx context.Context, webhook string, p *message.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return &DeliveryError{Reason: ReasonSerialization, Err: err}
	}

	form := url.Values{}
	form.Set("payload", string(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, strings.NewReader(form.Encode()))
	if err != nil {
		return &DeliveryError{Reason: ReasonNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Reason: ReasonNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	if err != nil {
		return &DeliveryError{Reason: ReasonNetwork, Status: resp.StatusCode, Err: err}
	}

	appLog.Debug("webhook response",
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start).String(),
	)

	if len(body) == 0 {
		return &DeliveryError{Reason: ReasonEmptyResponse, Status: resp.StatusCode}
	}
	if string(body) != successBody {
		return &DeliveryError{
			Reason: ReasonUnexpectedResponse,
			Status: resp.StatusCode,
			Body:   truncate(string(body), maxBodyInError),
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
