package devices

import (
	"errors"
	"time"
)

var (
	// ErrUnauthorized covers both an unknown device id and a key mismatch;
	// callers must not be able to tell the two apart.
	ErrUnauthorized = errors.New("devices: unauthorized")
)

// Device binds a sensor to the patient it reports for and the caregiver who
// registered it. Immutable once created; the api key is its sole credential
// and is surfaced exactly once, at registration.
type Device struct {
	DeviceID   string    `json:"deviceId"`
	APIKey     string    `json:"apiKey,omitempty"`
	DeviceName string    `json:"deviceName"`
	PatientID  string    `json:"patientId"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Validate checks invariants before persistence.
func (d *Device) Validate() error {
	if d == nil {
		return errors.New("devices: nil device")
	}
	if d.DeviceID == "" {
		return errors.New("devices: empty device id")
	}
	if d.APIKey == "" {
		return errors.New("devices: empty api key")
	}
	if d.PatientID == "" {
		return errors.New("devices: empty patient id")
	}
	if d.UserID == "" {
		return errors.New("devices: empty user id")
	}
	return nil
}
