package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"eldercare-cloud/internal/alerts"
	"eldercare-cloud/internal/devices"
	"eldercare-cloud/internal/patients"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps domain errors onto the HTTP taxonomy: unauthorized
// credentials, missing resources, everything else a store failure.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, devices.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "device not authorized")
	case errors.Is(err, patients.ErrNotFound):
		writeError(w, http.StatusNotFound, "patient not found")
	case errors.Is(err, alerts.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
