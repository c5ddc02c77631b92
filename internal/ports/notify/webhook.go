// Package notify delivers best-effort attendance notifications to an
// external HTTP endpoint. Callers discard the result; delivery failures must
// never affect aggregation.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"attendance.service/internal/core/model"
)

// Notifier contract for the external notification sink.
type Notifier interface {
	Notify(ctx context.Context, rec model.AttendanceRecord) error
}

// WebhookClient posts attendance records as JSON to a configured endpoint.
type WebhookClient struct {
	client   *http.Client
	endpoint string
}

// NewWebhookClient new WebhookClient with a bounded per-call timeout.
func NewWebhookClient(endpoint string, timeout time.Duration) *WebhookClient {
	return &WebhookClient{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
	}
}

// Notify posts one attendance record to the endpoint.
func (c *WebhookClient) Notify(ctx context.Context, rec model.AttendanceRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call notification endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned non-successful status code: %d", resp.StatusCode)
	}

	return nil
}
