package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eldercare-cloud/internal/fusion"

	"github.com/google/uuid"
)

const defaultHistoryTable = "metric_history"

// DefaultPageLimit caps trend queries for display.
const DefaultPageLimit = 100

// Record is one immutable raw+derived reading as it arrived. Identified by
// an ingest-time key with a random suffix; the suffix only guarantees
// storage uniqueness, ordering always uses the server timestamp.
type Record struct {
	ID              string               `json:"id"`
	DeviceID        string               `json:"deviceId"`
	PatientID       string               `json:"patientId"`
	Timestamp       time.Time            `json:"timestamp"`
	DeviceTimestamp json.RawMessage      `json:"deviceTimestamp,omitempty"`
	Metrics         fusion.SensorReading `json:"metrics"`
	Raw             json.RawMessage      `json:"raw,omitempty"`
}

// NewRecordID builds the storage key for a record received at now.
func NewRecordID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// DBTX is the subset of database/sql used by the log.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Log is the append-only per-patient reading store.
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

// NewLog constructs a history log.
func NewLog(db DBTX, opts ...Option) *Log {
	l := &Log{db: db, table: defaultHistoryTable}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stores a record. Records are never updated or deleted.
func (l *Log) Append(ctx context.Context, record *Record) error {
	if l == nil || l.db == nil {
		return errors.New("history log: nil db")
	}
	if record == nil || record.ID == "" || record.PatientID == "" {
		return errors.New("history log: invalid record")
	}

	metricsJSON, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("history log: marshal metrics: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	device_id,
	patient_id,
	server_ts,
	device_ts,
	metrics,
	raw
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)`, l.table)

	_, err = l.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.DeviceID,
		record.PatientID,
		record.Timestamp,
		nullableString(record.DeviceTimestamp),
		metricsJSON,
		nullableString(record.Raw),
	)
	return err
}

// List loads records for a patient, newest first by server timestamp,
// capped at limit (DefaultPageLimit when limit <= 0). The total row count
// is reported alongside the truncated page.
func (l *Log) List(ctx context.Context, patientID string, limit int) ([]Record, int, error) {
	if l == nil || l.db == nil {
		return nil, 0, errors.New("history log: nil db")
	}
	if patientID == "" {
		return nil, 0, errors.New("history log: empty patient id")
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE patient_id = $1`, l.table)
	if err := l.db.QueryRowContext(ctx, countQuery, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
SELECT id, device_id, patient_id, server_ts, device_ts, metrics, raw
FROM %s
WHERE patient_id = $1
ORDER BY server_ts DESC
LIMIT $2`, l.table)

	rows, err := l.db.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var (
			record      Record
			deviceTS    sql.NullString
			metricsJSON []byte
			raw         sql.NullString
		)
		if err := rows.Scan(
			&record.ID,
			&record.DeviceID,
			&record.PatientID,
			&record.Timestamp,
			&deviceTS,
			&metricsJSON,
			&raw,
		); err != nil {
			return nil, 0, err
		}
		record.Timestamp = record.Timestamp.UTC()
		if deviceTS.Valid {
			record.DeviceTimestamp = json.RawMessage(deviceTS.String)
		}
		if len(metricsJSON) > 0 {
			if err := json.Unmarshal(metricsJSON, &record.Metrics); err != nil {
				return nil, 0, fmt.Errorf("history log: unmarshal metrics: %w", err)
			}
		}
		if raw.Valid {
			record.Raw = json.RawMessage(raw.String)
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func nullableString(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
