package notifier

import (
	"bytes"
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

var _ contract.INotifier = (*WebhookNotifier)(nil)

// WebhookNotifier POSTs each notification as JSON to a fixed URL.
// Any non 2xx answer is a failure. Deadlines come from the caller's context.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func NewWebhookNotifier(url string, client *http.Client, log *slog.Logger) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{url: url, client: client, log: log}
}

func (w *WebhookNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("webhook: encode notification: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := w.client.Do(request)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", response.StatusCode)
	}
	w.log.Debug("Webhook delivered", "message_id", notification.Message.ID, "status", response.StatusCode)
	return nil
}
