package alerts

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// WebhookSenderOptions configures the chat webhook channel.
type WebhookSenderOptions struct {
	URL           string
	Timeout       time.Duration
	SkipTLSVerify bool
	Logger        *slog.Logger
}

// WebhookSender POSTs alerts to a chat webhook as a JSON payload with a
// human-readable title and a details attachment. Delivery is best-effort;
// a failed POST is returned as an error and not retried.
type WebhookSender struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

type webhookAttachmentField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type webhookAttachment struct {
	Color  string                   `json:"color"`
	Fields []webhookAttachmentField `json:"fields"`
}

type webhookPayload struct {
	Text        string              `json:"text"`
	Attachments []webhookAttachment `json:"attachments"`
}

// NewWebhookSender builds the webhook channel.
func NewWebhookSender(opts WebhookSenderOptions) *WebhookSender {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.SkipTLSVerify}, // #nosec G402
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookSender{
		url:    opts.URL,
		client: &http.Client{Timeout: timeout, Transport: transport},
		logger: logger.With("component", "alert_webhook_sender"),
	}
}

// Send delivers one notification to the configured webhook URL.
func (s *WebhookSender) Send(ctx context.Context, n Notification) error {
	payload := webhookPayload{
		Text: fmt.Sprintf("🚨 vLLM Alert: %s", n.Title),
		Attachments: []webhookAttachment{{
			Color: "danger",
			Fields: []webhookAttachmentField{{
				Title: "Details",
				Value: n.Message,
				Short: false,
			}},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	responseBody, readErr := io.ReadAll(response.Body)
	_ = response.Body.Close()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		trimmed := ""
		if readErr == nil {
			trimmed = strings.TrimSpace(string(responseBody))
		}
		if trimmed == "" {
			trimmed = response.Status
		}
		return fmt.Errorf("webhook returned status %d (%s)", response.StatusCode, trimmed)
	}
	return nil
}
