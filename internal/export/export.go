package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"eldercare-cloud/internal/history"
	"eldercare-cloud/internal/patients"
)

// BuildHistoryXLSX renders a patient's reading history as a workbook: a
// summary sheet with the current aggregate and a readings sheet with one
// row per history record, newest first as provided.
func BuildHistoryXLSX(patient *patients.Patient, records []history.Record) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	readingsSheet := "readings"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(readingsSheet)

	m := patient.Metrics
	_ = f.SetCellValue(summarySheet, "A1", "Mobility Summary")
	_ = f.SetCellValue(summarySheet, "A3", "Patient")
	_ = f.SetCellValue(summarySheet, "B3", patient.Name)
	_ = f.SetCellValue(summarySheet, "A4", "Steps Today")
	_ = f.SetCellValue(summarySheet, "B4", m.StepCount)
	_ = f.SetCellValue(summarySheet, "A5", "Average Cadence (steps/min)")
	_ = f.SetCellValue(summarySheet, "B5", m.AverageCadence)
	_ = f.SetCellValue(summarySheet, "A6", "Gait Speed (m/s)")
	_ = f.SetCellValue(summarySheet, "B6", m.GaitSpeed)
	_ = f.SetCellValue(summarySheet, "A7", "Postural Stability")
	_ = f.SetCellValue(summarySheet, "B7", m.PosturalStability)
	_ = f.SetCellValue(summarySheet, "A8", "TUG Estimate (s)")
	_ = f.SetCellValue(summarySheet, "B8", m.TugEstimated)
	_ = f.SetCellValue(summarySheet, "A9", "Falls Detected")
	_ = f.SetCellValue(summarySheet, "B9", m.FallsDetected)
	_ = f.SetCellValue(summarySheet, "A10", "Inactivity Episodes")
	_ = f.SetCellValue(summarySheet, "B10", m.InactivityEpisodes)

	headers := []string{
		"Timestamp", "Device", "Steps", "Cadence", "Gait Speed",
		"Stability", "Seated (h)", "Standing (h)", "Walking (h)",
		"Fall", "Inactivity Episodes", "TUG (s)",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(readingsSheet, cell, header)
	}
	for i, record := range records {
		row := i + 2
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("A%d", row), record.Timestamp.Format(time.RFC3339))
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("B%d", row), record.DeviceID)
		setIfInt(f, readingsSheet, fmt.Sprintf("C%d", row), record.Metrics.StepCount)
		setIfFloat(f, readingsSheet, fmt.Sprintf("D%d", row), record.Metrics.AverageCadence)
		setIfFloat(f, readingsSheet, fmt.Sprintf("E%d", row), record.Metrics.GaitSpeed)
		setIfFloat(f, readingsSheet, fmt.Sprintf("F%d", row), record.Metrics.PosturalStability)
		setIfFloat(f, readingsSheet, fmt.Sprintf("G%d", row), record.Metrics.TimeSeated)
		setIfFloat(f, readingsSheet, fmt.Sprintf("H%d", row), record.Metrics.TimeStanding)
		setIfFloat(f, readingsSheet, fmt.Sprintf("I%d", row), record.Metrics.TimeWalking)
		if record.Metrics.FallDetected != nil {
			_ = f.SetCellValue(readingsSheet, fmt.Sprintf("J%d", row), *record.Metrics.FallDetected)
		}
		setIfInt(f, readingsSheet, fmt.Sprintf("K%d", row), record.Metrics.InactivityEpisodes)
		setIfFloat(f, readingsSheet, fmt.Sprintf("L%d", row), record.Metrics.TugEstimated)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSummaryPDF renders a one-page mobility report for a patient.
func BuildSummaryPDF(patient *patients.Patient) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Mobility Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Patient: %s", patient.Name))
	pdf.Ln(5)
	if patient.Age > 0 {
		pdf.Cell(0, 6, fmt.Sprintf("Age: %d", patient.Age))
		pdf.Ln(5)
	}
	if patient.LastUpdate != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Last Update: %s", patient.LastUpdate.Format(time.RFC3339)))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	m := patient.Metrics
	rows := []struct {
		label string
		value string
	}{
		{"Steps Today", fmt.Sprintf("%d", m.StepCount)},
		{"Average Cadence (steps/min)", fmt.Sprintf("%.1f", m.AverageCadence)},
		{"Gait Speed (m/s)", fmt.Sprintf("%.2f", m.GaitSpeed)},
		{"Postural Stability", fmt.Sprintf("%.0f", m.PosturalStability)},
		{"Time Seated (h)", fmt.Sprintf("%.1f", m.TimeSeated)},
		{"Time Standing (h)", fmt.Sprintf("%.1f", m.TimeStanding)},
		{"Time Walking (h)", fmt.Sprintf("%.1f", m.TimeWalking)},
		{"TUG Estimate (s)", fmt.Sprintf("%.1f", m.TugEstimated)},
		{"Falls Detected", fmt.Sprintf("%t", m.FallsDetected)},
		{"Inactivity Episodes", fmt.Sprintf("%d", m.InactivityEpisodes)},
		{"Abrupt Transitions", fmt.Sprintf("%d", m.AbruptTransitions)},
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Metric", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(80, 6, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, row.value, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.Cell(0, 6, "Circadian Activity (per hour)")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 8)
	for hour, activity := range m.CircadianPattern {
		pdf.CellFormat(16, 5, fmt.Sprintf("%02d:00", hour), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 5, fmt.Sprintf("%.1f", activity), "1", 0, "R", false, 0, "")
		if hour%4 == 3 {
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setIfInt(f *excelize.File, sheet, cell string, v *int) {
	if v != nil {
		_ = f.SetCellValue(sheet, cell, *v)
	}
}

func setIfFloat(f *excelize.File, sheet, cell string, v *float64) {
	if v != nil {
		_ = f.SetCellValue(sheet, cell, *v)
	}
}
