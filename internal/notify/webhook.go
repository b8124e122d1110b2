package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/utils"
)

// WebhookDispatcher POSTs alert batches to a configured webhook URL.
type WebhookDispatcher struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookDispatcher constructs a dispatcher targeting the given URL.
func NewWebhookDispatcher(url string, timeout time.Duration, logger *slog.Logger) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookDispatcher{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Dispatch posts the whole batch as one JSON payload.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, alerts []models.WarningAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	payload := map[string]any{"alerts": alerts}
	body, err := json.Marshal(payload)
	if err != nil {
		return utils.NewAppError("notify.webhook", "encode alerts", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return utils.NewAppError("notify.webhook", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError("notify.webhook", "post alerts", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.NewAppError("notify.webhook", "post alerts", fmt.Errorf("webhook returned %s", resp.Status))
	}
	d.logger.Debug("alerts posted", slog.Int("count", len(alerts)))
	return nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (d *WebhookDispatcher) Close() error { return nil }
