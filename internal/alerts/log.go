package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eldercare-cloud/internal/fusion"

	"github.com/google/uuid"
)

const defaultAlertsTable = "alerts"

// ErrNotFound is returned when acknowledging an alert that does not exist.
var ErrNotFound = errors.New("alerts: not found")

// Record is a stored alert. Append-only; nothing but the acknowledged flag
// ever changes after creation.
type Record struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	fusion.Alert
}

// DBTX is the subset of database/sql used by the log.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Log is the append-only per-patient alert store.
type Log struct {
	db    DBTX
	table string
}

// Option configures the log.
type Option func(*Log)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(l *Log) {
		if table != "" {
			l.table = table
		}
	}
}

// NewLog constructs an alert log.
func NewLog(db DBTX, opts ...Option) *Log {
	l := &Log{db: db, table: defaultAlertsTable}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stores a freshly emitted alert under a new id.
func (l *Log) Append(ctx context.Context, patientID string, alert fusion.Alert) (*Record, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("alert log: nil db")
	}
	if patientID == "" {
		return nil, errors.New("alert log: empty patient id")
	}

	record := &Record{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Alert:     alert,
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	patient_id,
	alert_type,
	ts,
	acknowledged,
	duration,
	details
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)`, l.table)

	_, err := l.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.PatientID,
		string(record.Type),
		record.Timestamp,
		record.Acknowledged,
		record.Duration,
		nullableDetails(record.Details),
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func nullableDetails(details []byte) any {
	if len(details) == 0 {
		return nil
	}
	return string(details)
}

// List loads every alert for a patient, newest first.
func (l *Log) List(ctx context.Context, patientID string) ([]Record, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("alert log: nil db")
	}
	if patientID == "" {
		return nil, errors.New("alert log: empty patient id")
	}

	query := fmt.Sprintf(`
SELECT id, patient_id, alert_type, ts, acknowledged, duration, details
FROM %s
WHERE patient_id = $1
ORDER BY ts DESC`, l.table)

	rows, err := l.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var (
			record    Record
			alertType string
			duration  sql.NullFloat64
			details   []byte
		)
		if err := rows.Scan(
			&record.ID,
			&record.PatientID,
			&alertType,
			&record.Timestamp,
			&record.Acknowledged,
			&duration,
			&details,
		); err != nil {
			return nil, err
		}
		record.Type = fusion.AlertType(alertType)
		record.Timestamp = record.Timestamp.UTC()
		if duration.Valid {
			d := duration.Float64
			record.Duration = &d
		}
		if len(details) > 0 {
			record.Details = details
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Acknowledge marks an alert as seen by a caregiver.
func (l *Log) Acknowledge(ctx context.Context, patientID, alertID string) error {
	if l == nil || l.db == nil {
		return errors.New("alert log: nil db")
	}

	query := fmt.Sprintf(`
UPDATE %s SET acknowledged = TRUE
WHERE patient_id = $1 AND id = $2`, l.table)

	result, err := l.db.ExecContext(ctx, query, patientID, alertID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
