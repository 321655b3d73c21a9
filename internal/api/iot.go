package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"eldercare-cloud/internal/auth"
	"eldercare-cloud/internal/devices"
	"eldercare-cloud/internal/fusion"
	"eldercare-cloud/internal/ingest"
	"eldercare-cloud/internal/observability/metrics"

	"go.uber.org/zap"
)

const (
	headerDeviceID  = "X-Device-Id"
	headerDeviceKey = "X-Device-Key"
)

// IngestService is the application seam the IoT handler drives.
type IngestService interface {
	Ingest(ctx context.Context, deviceID, apiKey string, submission ingest.Submission) (*ingest.Result, error)
	ResetDaily(ctx context.Context, deviceID, apiKey string) error
}

// DeviceRegistrar registers devices for caregivers.
type DeviceRegistrar interface {
	Register(ctx context.Context, userID, patientID, deviceName string) (*devices.Device, error)
}

// IoTHandler serves the device-facing endpoints.
type IoTHandler struct {
	service   IngestService
	registrar DeviceRegistrar
	logger    *zap.Logger
}

// NewIoTHandler constructs the handler.
func NewIoTHandler(service IngestService, registrar DeviceRegistrar, logger *zap.Logger) (*IoTHandler, error) {
	if service == nil {
		return nil, errors.New("iot handler: nil service")
	}
	if registrar == nil {
		return nil, errors.New("iot handler: nil registrar")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IoTHandler{service: service, registrar: registrar, logger: logger}, nil
}

type ingestRequest struct {
	Metrics   *fusion.SensorReading `json:"metrics"`
	Raw       json.RawMessage       `json:"raw,omitempty"`
	Timestamp json.RawMessage       `json:"timestamp,omitempty"`
}

type updatedMetricsView struct {
	StepCount         int     `json:"stepCount"`
	AverageCadence    float64 `json:"averageCadence"`
	GaitSpeed         float64 `json:"gaitSpeed"`
	PosturalStability float64 `json:"posturalStability"`
}

// HandleMetrics ingests one sensor reading (POST /iot/metrics).
func (h *IoTHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	deviceID := r.Header.Get(headerDeviceID)
	apiKey := r.Header.Get(headerDeviceKey)
	if deviceID == "" || apiKey == "" {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		writeError(w, http.StatusUnauthorized, "device credentials not provided")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	submission := ingest.Submission{
		Raw:             req.Raw,
		DeviceTimestamp: req.Timestamp,
	}
	if req.Metrics != nil {
		submission.Metrics = *req.Metrics
	}

	result, err := h.service.Ingest(r.Context(), deviceID, apiKey, submission)
	if err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		h.logger.Error("ingest failed", zap.String("deviceId", deviceID), zap.Error(err))
		respondError(w, err)
		return
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"metricId": result.MetricID,
		"updatedMetrics": updatedMetricsView{
			StepCount:         result.Metrics.StepCount,
			AverageCadence:    roundTo(result.Metrics.AverageCadence, 1),
			GaitSpeed:         roundTo(result.Metrics.GaitSpeed, 2),
			PosturalStability: roundTo(result.Metrics.PosturalStability, 0),
		},
	})
}

// HandleResetDaily zeroes the bound patient's daily tallies
// (POST /iot/reset-daily).
func (h *IoTHandler) HandleResetDaily(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Header.Get(headerDeviceID)
	apiKey := r.Header.Get(headerDeviceKey)
	if deviceID == "" || apiKey == "" {
		metrics.ObserveReset(metrics.ResultError)
		writeError(w, http.StatusUnauthorized, "device credentials not provided")
		return
	}

	if err := h.service.ResetDaily(r.Context(), deviceID, apiKey); err != nil {
		metrics.ObserveReset(metrics.ResultError)
		h.logger.Error("daily reset failed", zap.String("deviceId", deviceID), zap.Error(err))
		respondError(w, err)
		return
	}

	metrics.ObserveReset(metrics.ResultSuccess)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "daily metrics reset",
	})
}

type registerDeviceRequest struct {
	PatientID  string `json:"patientId"`
	DeviceName string `json:"deviceName"`
}

// HandleRegisterDevice binds a new device to a patient (POST /iot/devices,
// caregiver token required). The api key in the response is the only time
// it is ever exposed.
func (h *IoTHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PatientID == "" {
		writeError(w, http.StatusBadRequest, "patientId is required")
		return
	}

	device, err := h.registrar.Register(r.Context(), userID, req.PatientID, req.DeviceName)
	if err != nil {
		h.logger.Error("device registration failed",
			zap.String("userId", userID),
			zap.String("patientId", req.PatientID),
			zap.Error(err),
		)
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device": map[string]string{
			"deviceId":   device.DeviceID,
			"apiKey":     device.APIKey,
			"deviceName": device.DeviceName,
			"patientId":  device.PatientID,
		},
	})
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
