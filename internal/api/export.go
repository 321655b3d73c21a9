package api

import (
	"fmt"
	"net/http"

	"eldercare-cloud/internal/auth"
	"eldercare-cloud/internal/export"
	"eldercare-cloud/internal/history"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ExportHandler renders patient history and summary documents.
type ExportHandler struct {
	store   PatientStore
	history HistoryReader
	logger  *zap.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(store PatientStore, historyLog HistoryReader, logger *zap.Logger) (*ExportHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("export handler: nil store")
	}
	if historyLog == nil {
		return nil, fmt.Errorf("export handler: nil history log")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{store: store, history: historyLog, logger: logger}, nil
}

// HandleHistoryXLSX streams the reading history as a spreadsheet
// (GET /patients/{id}/export.xlsx).
func (h *ExportHandler) HandleHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	patientID := mux.Vars(r)["id"]

	patient, err := h.store.Get(r.Context(), userID, patientID)
	if err != nil {
		respondError(w, err)
		return
	}

	records, _, err := h.history.List(r.Context(), patientID, history.DefaultPageLimit)
	if err != nil {
		h.logger.Error("history export failed", zap.String("patientId", patientID), zap.Error(err))
		respondError(w, err)
		return
	}

	payload, err := export.BuildHistoryXLSX(patient, records)
	if err != nil {
		h.logger.Error("xlsx build failed", zap.String("patientId", patientID), zap.Error(err))
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "metrics-"+patientID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// HandleSummaryPDF streams the current fused metrics as a report
// (GET /patients/{id}/report.pdf).
func (h *ExportHandler) HandleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	patientID := mux.Vars(r)["id"]

	patient, err := h.store.Get(r.Context(), userID, patientID)
	if err != nil {
		respondError(w, err)
		return
	}

	payload, err := export.BuildSummaryPDF(patient)
	if err != nil {
		h.logger.Error("pdf build failed", zap.String("patientId", patientID), zap.Error(err))
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+patientID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
