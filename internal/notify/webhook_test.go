package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eldercare-cloud/internal/alerts"
	"eldercare-cloud/internal/fusion"
	"eldercare-cloud/internal/patients"
)

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, nil)
	if notifier == nil {
		t.Fatal("notifier is nil for non-empty url")
	}

	duration := 40.0
	at := time.Date(2025, 8, 12, 14, 30, 0, 0, time.UTC)
	record := &alerts.Record{
		ID:        "alert-1",
		PatientID: "patient-1",
		Alert: fusion.Alert{
			Type:      fusion.AlertProlongedInactivity,
			Timestamp: at,
			Duration:  &duration,
		},
	}
	patient := &patients.Patient{ID: "patient-1", Name: "Maria"}

	notifier.NotifyAlert(context.Background(), patient, record)

	select {
	case payload := <-payloadCh:
		if payload.PatientID != "patient-1" || payload.PatientName != "Maria" {
			t.Errorf("patient fields = %q/%q", payload.PatientID, payload.PatientName)
		}
		if payload.Type != string(fusion.AlertProlongedInactivity) {
			t.Errorf("type = %q", payload.Type)
		}
		if payload.Duration == nil || *payload.Duration != 40 {
			t.Errorf("duration = %v, want 40", payload.Duration)
		}
		if !payload.Timestamp.Equal(at) {
			t.Errorf("timestamp = %v, want %v", payload.Timestamp, at)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never called")
	}
}

func TestWebhookNotifierEmptyURL(t *testing.T) {
	if NewWebhookNotifier("", nil) != nil {
		t.Error("expected nil notifier for empty url")
	}
	// A nil notifier must be safe to call.
	var notifier *WebhookNotifier
	notifier.NotifyAlert(context.Background(), nil, nil)
}
