package patients

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eldercare-cloud/internal/fusion"
)

const defaultPatientsTable = "patients"

// DBTX is the subset of database/sql used by the repository, satisfied by
// *sql.DB and *sql.Tx alike.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the Postgres store for patients. The fusion aggregate is
// kept as a JSONB column; lookup paths (owning user, id) are real indexed
// columns instead of key prefixes.
type Repository struct {
	db    DBTX
	table string
}

// Option configures the repository.
type Option func(*Repository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *Repository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewRepository constructs a repository.
func NewRepository(db DBTX, opts ...Option) *Repository {
	repo := &Repository{db: db, table: defaultPatientsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Get loads a patient owned by userID. Returns ErrNotFound when absent.
func (r *Repository) Get(ctx context.Context, userID, patientID string) (*Patient, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("patients repo: nil db")
	}
	if userID == "" || patientID == "" {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`
SELECT id, user_id, name, age, metrics, last_update, created_at
FROM %s
WHERE user_id = $1 AND id = $2
LIMIT 1`, r.table)

	patient, err := scanPatient(r.db.QueryRowContext(ctx, query, userID, patientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return patient, nil
}

// List loads every patient owned by userID, oldest first.
func (r *Repository) List(ctx context.Context, userID string) ([]Patient, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("patients repo: nil db")
	}
	if userID == "" {
		return nil, errors.New("patients repo: empty user id")
	}

	query := fmt.Sprintf(`
SELECT id, user_id, name, age, metrics, last_update, created_at
FROM %s
WHERE user_id = $1
ORDER BY created_at ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *patient)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save upserts a patient including its metrics snapshot. Last write wins:
// concurrent ingests for the same patient are not serialized, matching the
// documented non-atomic update model.
func (r *Repository) Save(ctx context.Context, patient *Patient) error {
	if r == nil || r.db == nil {
		return errors.New("patients repo: nil db")
	}
	if err := patient.Validate(); err != nil {
		return err
	}

	metricsJSON, err := json.Marshal(patient.Metrics)
	if err != nil {
		return fmt.Errorf("patients repo: marshal metrics: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	user_id,
	name,
	age,
	metrics,
	last_update
) VALUES (
	$1, $2, $3, $4, $5, $6
)
ON CONFLICT (id)
DO UPDATE SET
	name = EXCLUDED.name,
	age = EXCLUDED.age,
	metrics = EXCLUDED.metrics,
	last_update = EXCLUDED.last_update`, r.table)

	_, err = r.db.ExecContext(
		ctx,
		query,
		patient.ID,
		patient.UserID,
		patient.Name,
		patient.Age,
		metricsJSON,
		patient.LastUpdate,
	)
	if err != nil {
		return err
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Delete removes the patient row only. History records, alerts and devices
// bound to the patient are left in place; a device pointing at a deleted
// patient gets 404 on its next ingest.
func (r *Repository) Delete(ctx context.Context, userID, patientID string) error {
	if r == nil || r.db == nil {
		return errors.New("patients repo: nil db")
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND id = $2`, r.table)
	result, err := r.db.ExecContext(ctx, query, userID, patientID)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var (
		patient     Patient
		metricsJSON []byte
		lastUpdate  sql.NullTime
	)
	if err := row.Scan(
		&patient.ID,
		&patient.UserID,
		&patient.Name,
		&patient.Age,
		&metricsJSON,
		&lastUpdate,
		&patient.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &patient.Metrics); err != nil {
			return nil, fmt.Errorf("patients repo: unmarshal metrics: %w", err)
		}
	} else {
		patient.Metrics = fusion.PatientMetrics{}
	}
	if lastUpdate.Valid {
		t := lastUpdate.Time.UTC()
		patient.LastUpdate = &t
	}
	patient.CreatedAt = patient.CreatedAt.UTC()
	return &patient, nil
}
