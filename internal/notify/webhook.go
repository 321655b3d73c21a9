package notify

import (
	"context"
	"time"

	"eldercare-cloud/internal/alerts"
	"eldercare-cloud/internal/patients"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 5 * time.Second

// WebhookNotifier posts emitted alerts to a caregiver-operated webhook
// endpoint. Delivery is best effort: failures are logged and dropped, an
// ingest call never waits on a retry.
type WebhookNotifier struct {
	url    string
	client *resty.Client
	logger *zap.Logger
}

// WebhookOption configures the notifier.
type WebhookOption func(*WebhookNotifier)

// WithRequestTimeout overrides the per-delivery timeout.
func WithRequestTimeout(timeout time.Duration) WebhookOption {
	return func(n *WebhookNotifier) {
		if timeout > 0 {
			n.client.SetTimeout(timeout)
		}
	}
}

// NewWebhookNotifier constructs a notifier; returns nil when url is empty
// so callers can wire it unconditionally.
func NewWebhookNotifier(url string, logger *zap.Logger, opts ...WebhookOption) *WebhookNotifier {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := &WebhookNotifier{
		url:    url,
		client: resty.New().SetTimeout(defaultRequestTimeout),
		logger: logger,
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier
}

type webhookPayload struct {
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName,omitempty"`
	AlertID     string    `json:"alertId"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    *float64  `json:"duration,omitempty"`
}

// NotifyAlert delivers one alert.
func (n *WebhookNotifier) NotifyAlert(ctx context.Context, patient *patients.Patient, record *alerts.Record) {
	if n == nil || record == nil {
		return
	}
	payload := webhookPayload{
		PatientID: record.PatientID,
		AlertID:   record.ID,
		Type:      string(record.Type),
		Timestamp: record.Timestamp,
		Duration:  record.Duration,
	}
	if patient != nil {
		payload.PatientName = patient.Name
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.url)
	if err != nil {
		n.logger.Error("alert webhook delivery failed", zap.String("alertId", record.ID), zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Error("alert webhook rejected",
			zap.String("alertId", record.ID),
			zap.Int("status", resp.StatusCode()),
		)
	}
}
