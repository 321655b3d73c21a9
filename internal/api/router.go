package api

import (
	"net/http"

	"eldercare-cloud/internal/auth"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	IoT     *IoTHandler
	Patient *PatientHandler
	Export  *ExportHandler
	Auth    *auth.Middleware
	Logger  *zap.Logger
}

// NewRouter wires the full HTTP surface. Device endpoints authenticate with
// per-device headers, caregiver endpoints with a bearer token.
func NewRouter(h Handlers) *mux.Router {
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(corsMiddleware, loggingMiddleware(logger))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	iot := r.PathPrefix("/iot").Subrouter()
	iot.HandleFunc("/metrics", h.IoT.HandleMetrics).Methods(http.MethodPost, http.MethodOptions)
	iot.HandleFunc("/reset-daily", h.IoT.HandleResetDaily).Methods(http.MethodPost, http.MethodOptions)
	iot.Handle("/devices", h.Auth.Wrap(http.HandlerFunc(h.IoT.HandleRegisterDevice))).Methods(http.MethodPost, http.MethodOptions)

	user := r.PathPrefix("/patients").Subrouter()
	user.Use(h.Auth.Wrap)
	user.HandleFunc("", h.Patient.HandleList).Methods(http.MethodGet, http.MethodOptions)
	user.HandleFunc("", h.Patient.HandleCreate).Methods(http.MethodPost, http.MethodOptions)
	user.HandleFunc("/{id}", h.Patient.HandleGet).Methods(http.MethodGet, http.MethodOptions)
	user.HandleFunc("/{id}", h.Patient.HandleUpdate).Methods(http.MethodPut, http.MethodOptions)
	user.HandleFunc("/{id}", h.Patient.HandleDelete).Methods(http.MethodDelete, http.MethodOptions)
	user.HandleFunc("/{id}/metrics", h.Patient.HandleMetricHistory).Methods(http.MethodGet, http.MethodOptions)
	user.HandleFunc("/{id}/alerts", h.Patient.HandleAlerts).Methods(http.MethodGet, http.MethodOptions)
	user.HandleFunc("/{id}/alerts/{alertId}/ack", h.Patient.HandleAcknowledgeAlert).Methods(http.MethodPost, http.MethodOptions)
	user.HandleFunc("/{id}/export.xlsx", h.Export.HandleHistoryXLSX).Methods(http.MethodGet, http.MethodOptions)
	user.HandleFunc("/{id}/report.pdf", h.Export.HandleSummaryPDF).Methods(http.MethodGet, http.MethodOptions)

	return r
}
