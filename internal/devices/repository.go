package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const defaultDevicesTable = "devices"

// DBTX is the subset of database/sql used by the repository.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the Postgres store for devices.
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
	repo := &Repository{db: db, table: defaultDevicesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Get loads a device by id. Returns (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, deviceID string) (*Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("devices repo: nil db")
	}
	if deviceID == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id, api_key, name, patient_id, user_id, created_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var device Device
	if err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&device.DeviceID,
		&device.APIKey,
		&device.DeviceName,
		&device.PatientID,
		&device.UserID,
		&device.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	device.CreatedAt = device.CreatedAt.UTC()
	return &device, nil
}

// Insert persists a freshly registered device.
func (r *Repository) Insert(ctx context.Context, device *Device) error {
	if r == nil || r.db == nil {
		return errors.New("devices repo: nil db")
	}
	if err := device.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	api_key,
	name,
	patient_id,
	user_id
) VALUES (
	$1, $2, $3, $4, $5
)`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		device.DeviceID,
		device.APIKey,
		device.DeviceName,
		device.PatientID,
		device.UserID,
	)
	return err
}
