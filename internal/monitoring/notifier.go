// Package monitoring emits run lifecycle events to an external webhook. The
// notifier is a constructor-injected collaborator; delivery policy (retries,
// fan-out, paging) belongs to the receiving system.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// EventType identifies the kind of run event.
type EventType string

const (
	EventRunComplete EventType = "run_complete"
	EventRunFailed   EventType = "run_failed"
)

// Event is a single run notification.
type Event struct {
	Type       EventType               `json:"type"`
	RunID      string                  `json:"run_id"`
	Message    string                  `json:"message"`
	Statistics *model.FilterStatistics `json:"statistics,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

// Notifier delivers run events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// WebhookNotifier posts events to a configured webhook URL. An empty URL
// makes every Notify a no-op.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if n.webhookURL == "" {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}

	zap.L().Info("monitoring: event sent",
		zap.String("type", string(event.Type)),
		zap.String("run_id", event.RunID),
	)
	return nil
}
