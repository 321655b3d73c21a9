package export

import (
	"bytes"
	"testing"
	"time"

	"eldercare-cloud/internal/fusion"
	"eldercare-cloud/internal/history"
	"eldercare-cloud/internal/patients"
)

func testPatient() *patients.Patient {
	return &patients.Patient{
		ID:     "pat-1",
		UserID: "user-1",
		Name:   "Rosa",
		Age:    81,
		Metrics: fusion.PatientMetrics{
			StepCount:         4200,
			AverageCadence:    101.3,
			GaitSpeed:         1.12,
			PosturalStability: 87,
			TugEstimated:      11.5,
		},
	}
}

func TestBuildHistoryXLSX(t *testing.T) {
	steps := 120
	cadence := 98.5
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	records := []history.Record{
		{
			ID:        "rec-1",
			DeviceID:  "dev-1",
			PatientID: "pat-1",
			Timestamp: now,
			Metrics: fusion.SensorReading{
				StepCount:      &steps,
				AverageCadence: &cadence,
			},
		},
	}

	payload, err := BuildHistoryXLSX(testPatient(), records)
	if err != nil {
		t.Fatalf("BuildHistoryXLSX: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("empty workbook")
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(payload, []byte("PK")) {
		t.Errorf("payload does not look like a workbook: % x", payload[:4])
	}
}

func TestBuildSummaryPDF(t *testing.T) {
	payload, err := BuildSummaryPDF(testPatient())
	if err != nil {
		t.Fatalf("BuildSummaryPDF: %v", err)
	}
	if !bytes.HasPrefix(payload, []byte("%PDF")) {
		t.Fatalf("payload does not look like a pdf")
	}
}
