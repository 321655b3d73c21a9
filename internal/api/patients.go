package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"eldercare-cloud/internal/alerts"
	"eldercare-cloud/internal/auth"
	"eldercare-cloud/internal/history"
	"eldercare-cloud/internal/patients"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PatientStore is the patient persistence surface the dashboard drives.
type PatientStore interface {
	Get(ctx context.Context, userID, patientID string) (*patients.Patient, error)
	List(ctx context.Context, userID string) ([]patients.Patient, error)
	Save(ctx context.Context, patient *patients.Patient) error
	Delete(ctx context.Context, userID, patientID string) error
}

// AlertReader reads and acknowledges a patient's alert log.
type AlertReader interface {
	List(ctx context.Context, patientID string) ([]alerts.Record, error)
	Acknowledge(ctx context.Context, patientID, alertID string) error
}

// HistoryReader pages through a patient's raw reading history.
type HistoryReader interface {
	List(ctx context.Context, patientID string, limit int) ([]history.Record, int, error)
}

// PatientHandler serves the caregiver-facing patient endpoints.
type PatientHandler struct {
	store   PatientStore
	alerts  AlertReader
	history HistoryReader
	logger  *zap.Logger
	now     func() time.Time
}

// NewPatientHandler constructs the handler.
func NewPatientHandler(store PatientStore, alertLog AlertReader, historyLog HistoryReader, logger *zap.Logger) (*PatientHandler, error) {
	if store == nil {
		return nil, errors.New("patient handler: nil store")
	}
	if alertLog == nil {
		return nil, errors.New("patient handler: nil alert log")
	}
	if historyLog == nil {
		return nil, errors.New("patient handler: nil history log")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientHandler{
		store:   store,
		alerts:  alertLog,
		history: historyLog,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// HandleList returns all patients owned by the caller (GET /patients).
func (h *PatientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	list, err := h.store.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("patient list failed", zap.String("userId", userID), zap.Error(err))
		respondError(w, err)
		return
	}
	if list == nil {
		list = []patients.Patient{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": list})
}

// HandleGet returns one patient (GET /patients/{id}).
func (h *PatientHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	patientID := mux.Vars(r)["id"]

	patient, err := h.store.Get(r.Context(), userID, patientID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patient": patient})
}

type patientRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// HandleCreate registers a new patient (POST /patients).
func (h *PatientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	patient := &patients.Patient{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      req.Name,
		Age:       req.Age,
		CreatedAt: h.now().UTC(),
	}
	if err := patient.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Save(r.Context(), patient); err != nil {
		h.logger.Error("patient create failed", zap.String("userId", userID), zap.Error(err))
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"patient": patient})
}

// HandleUpdate changes a patient's profile fields (PUT /patients/{id}).
// Metrics and timestamps are owned by the ingest path and never touched here.
func (h *PatientHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	patientID := mux.Vars(r)["id"]

	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	patient, err := h.store.Get(r.Context(), userID, patientID)
	if err != nil {
		respondError(w, err)
		return
	}

	if req.Name != "" {
		patient.Name = req.Name
	}
	if req.Age != 0 {
		patient.Age = req.Age
	}
	if err := patient.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Save(r.Context(), patient); err != nil {
		h.logger.Error("patient update failed", zap.String("patientId", patientID), zap.Error(err))
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patient": patient})
}

// HandleDelete removes a patient record (DELETE /patients/{id}). History,
// alerts and device bindings are left in place and become unreachable
// through this API.
func (h *PatientHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	patientID := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), userID, patientID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleMetricHistory pages the newest raw readings (GET /patients/{id}/metrics).
func (h *PatientHandler) HandleMetricHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	patientID := mux.Vars(r)["id"]

	if _, err := h.store.Get(r.Context(), userID, patientID); err != nil {
		respondError(w, err)
		return
	}

	records, total, err := h.history.List(r.Context(), patientID, history.DefaultPageLimit)
	if err != nil {
		h.logger.Error("history list failed", zap.String("patientId", patientID), zap.Error(err))
		respondError(w, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": records,
		"total":   total,
	})
}

// HandleAlerts returns the patient's alert log, newest first
// (GET /patients/{id}/alerts).
func (h *PatientHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	patientID := mux.Vars(r)["id"]

	if _, err := h.store.Get(r.Context(), userID, patientID); err != nil {
		respondError(w, err)
		return
	}

	list, err := h.alerts.List(r.Context(), patientID)
	if err != nil {
		h.logger.Error("alert list failed", zap.String("patientId", patientID), zap.Error(err))
		respondError(w, err)
		return
	}
	if list == nil {
		list = []alerts.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": list})
}

// HandleAcknowledgeAlert marks one alert as seen
// (POST /patients/{id}/alerts/{alertId}/ack).
func (h *PatientHandler) HandleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	vars := mux.Vars(r)
	patientID, alertID := vars["id"], vars["alertId"]

	if _, err := h.store.Get(r.Context(), userID, patientID); err != nil {
		respondError(w, err)
		return
	}

	if err := h.alerts.Acknowledge(r.Context(), patientID, alertID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
