package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eldercare-cloud/internal/auth"
	"eldercare-cloud/internal/devices"
	"eldercare-cloud/internal/fusion"
	"eldercare-cloud/internal/ingest"
	"eldercare-cloud/internal/patients"

	"go.uber.org/zap"
)

type stubIngestService struct {
	result    *ingest.Result
	err       error
	gotID     string
	gotKey    string
	gotReset  bool
	submitted ingest.Submission
}

func (s *stubIngestService) Ingest(_ context.Context, deviceID, apiKey string, submission ingest.Submission) (*ingest.Result, error) {
	s.gotID, s.gotKey, s.submitted = deviceID, apiKey, submission
	return s.result, s.err
}

func (s *stubIngestService) ResetDaily(_ context.Context, deviceID, apiKey string) error {
	s.gotID, s.gotKey, s.gotReset = deviceID, apiKey, true
	return s.err
}

type stubRegistrar struct {
	device *devices.Device
	err    error
	gotReq [3]string
}

func (s *stubRegistrar) Register(_ context.Context, userID, patientID, deviceName string) (*devices.Device, error) {
	s.gotReq = [3]string{userID, patientID, deviceName}
	return s.device, s.err
}

func newTestIoTHandler(t *testing.T, service IngestService, registrar DeviceRegistrar) *IoTHandler {
	t.Helper()
	h, err := NewIoTHandler(service, registrar, zap.NewNop())
	if err != nil {
		t.Fatalf("NewIoTHandler: %v", err)
	}
	return h
}

func TestHandleMetricsRequiresCredentials(t *testing.T) {
	h := newTestIoTHandler(t, &stubIngestService{}, &stubRegistrar{})

	req := httptest.NewRequest(http.MethodPost, "/iot/metrics", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleMetricsRoundsResponse(t *testing.T) {
	service := &stubIngestService{result: &ingest.Result{
		MetricID: "1700000000000-abcd1234",
		Metrics: fusion.PatientMetrics{
			StepCount:         1200,
			AverageCadence:    101.2599,
			GaitSpeed:         1.23456,
			PosturalStability: 86.71,
		},
	}}
	h := newTestIoTHandler(t, service, &stubRegistrar{})

	body := `{"metrics":{"stepCount":100},"raw":{"seq":9},"timestamp":"2026-09-01T10:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/iot/metrics", strings.NewReader(body))
	req.Header.Set("X-Device-Id", "dev-1")
	req.Header.Set("X-Device-Key", "key-1")
	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if service.gotID != "dev-1" || service.gotKey != "key-1" {
		t.Fatalf("credentials not forwarded: %q %q", service.gotID, service.gotKey)
	}
	if service.submitted.Metrics.StepCount == nil || *service.submitted.Metrics.StepCount != 100 {
		t.Fatalf("metrics not forwarded: %+v", service.submitted.Metrics)
	}
	if string(service.submitted.Raw) != `{"seq":9}` {
		t.Fatalf("raw not forwarded: %s", service.submitted.Raw)
	}

	var resp struct {
		Success  bool   `json:"success"`
		MetricID string `json:"metricId"`
		Updated  struct {
			StepCount         int     `json:"stepCount"`
			AverageCadence    float64 `json:"averageCadence"`
			GaitSpeed         float64 `json:"gaitSpeed"`
			PosturalStability float64 `json:"posturalStability"`
		} `json:"updatedMetrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.MetricID != "1700000000000-abcd1234" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Updated.AverageCadence != 101.3 {
		t.Errorf("averageCadence = %v, want 101.3", resp.Updated.AverageCadence)
	}
	if resp.Updated.GaitSpeed != 1.23 {
		t.Errorf("gaitSpeed = %v, want 1.23", resp.Updated.GaitSpeed)
	}
	if resp.Updated.PosturalStability != 87 {
		t.Errorf("posturalStability = %v, want 87", resp.Updated.PosturalStability)
	}
}

func TestHandleMetricsUnknownDevice(t *testing.T) {
	service := &stubIngestService{err: devices.ErrUnauthorized}
	h := newTestIoTHandler(t, service, &stubRegistrar{})

	req := httptest.NewRequest(http.MethodPost, "/iot/metrics", strings.NewReader(`{"metrics":{}}`))
	req.Header.Set("X-Device-Id", "dev-x")
	req.Header.Set("X-Device-Key", "bad")
	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleMetricsDeletedPatient(t *testing.T) {
	service := &stubIngestService{err: patients.ErrNotFound}
	h := newTestIoTHandler(t, service, &stubRegistrar{})

	req := httptest.NewRequest(http.MethodPost, "/iot/metrics", strings.NewReader(`{"metrics":{}}`))
	req.Header.Set("X-Device-Id", "dev-1")
	req.Header.Set("X-Device-Key", "key-1")
	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleResetDaily(t *testing.T) {
	service := &stubIngestService{}
	h := newTestIoTHandler(t, service, &stubRegistrar{})

	req := httptest.NewRequest(http.MethodPost, "/iot/reset-daily", nil)
	req.Header.Set("X-Device-Id", "dev-1")
	req.Header.Set("X-Device-Key", "key-1")
	rec := httptest.NewRecorder()
	h.HandleResetDaily(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !service.gotReset {
		t.Fatal("service.ResetDaily not called")
	}
}

func TestHandleRegisterDevice(t *testing.T) {
	registrar := &stubRegistrar{device: &devices.Device{
		DeviceID:   "dev-7",
		APIKey:     "secretkey",
		DeviceName: "Sensor - Rosa",
		PatientID:  "pat-1",
	}}
	h := newTestIoTHandler(t, &stubIngestService{}, registrar)

	req := httptest.NewRequest(http.MethodPost, "/iot/devices", strings.NewReader(`{"patientId":"pat-1"}`))
	req = req.WithContext(auth.WithUser(req.Context(), "user-1", "carer@example.com"))
	rec := httptest.NewRecorder()
	h.HandleRegisterDevice(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if registrar.gotReq[0] != "user-1" || registrar.gotReq[1] != "pat-1" {
		t.Fatalf("registrar call = %v", registrar.gotReq)
	}

	var resp struct {
		Device map[string]string `json:"device"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Device["apiKey"] != "secretkey" || resp.Device["deviceId"] != "dev-7" {
		t.Fatalf("unexpected device payload: %v", resp.Device)
	}
}

func TestHandleRegisterDeviceRequiresPatientID(t *testing.T) {
	h := newTestIoTHandler(t, &stubIngestService{}, &stubRegistrar{})

	req := httptest.NewRequest(http.MethodPost, "/iot/devices", strings.NewReader(`{}`))
	req = req.WithContext(auth.WithUser(req.Context(), "user-1", ""))
	rec := httptest.NewRecorder()
	h.HandleRegisterDevice(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
