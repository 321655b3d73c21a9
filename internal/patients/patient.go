package patients

import (
	"errors"
	"time"

	"eldercare-cloud/internal/fusion"
)

// ErrNotFound is returned when a patient does not exist or is not owned by
// the requesting caregiver. Ownership misses are indistinguishable from
// absence on purpose.
var ErrNotFound = errors.New("patients: not found")

// Patient is a monitored person registered by a caregiver. Metrics is the
// current fusion aggregate; it is owned exclusively by this record and
// replaced wholesale on every ingest.
type Patient struct {
	ID         string                `json:"id"`
	UserID     string                `json:"-"`
	Name       string                `json:"name"`
	Age        int                   `json:"age,omitempty"`
	Metrics    fusion.PatientMetrics `json:"metrics"`
	LastUpdate *time.Time            `json:"lastUpdate,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// Validate checks invariants before persistence.
func (p *Patient) Validate() error {
	if p == nil {
		return errors.New("patients: nil patient")
	}
	if p.ID == "" {
		return errors.New("patients: empty id")
	}
	if p.UserID == "" {
		return errors.New("patients: empty user id")
	}
	if p.Name == "" {
		return errors.New("patients: empty name")
	}
	return nil
}
