package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"eldercare-cloud/internal/alerts"
	"eldercare-cloud/internal/devices"
	"eldercare-cloud/internal/fusion"
	"eldercare-cloud/internal/history"
	"eldercare-cloud/internal/observability/metrics"
	"eldercare-cloud/internal/patients"

	"go.uber.org/zap"
)

// DeviceAuthenticator resolves device credentials.
type DeviceAuthenticator interface {
	Authenticate(ctx context.Context, deviceID, apiKey string) (*devices.Device, error)
}

// PatientStore loads and saves the patient aggregate.
type PatientStore interface {
	Get(ctx context.Context, userID, patientID string) (*patients.Patient, error)
	Save(ctx context.Context, patient *patients.Patient) error
}

// AlertLog appends emitted alerts.
type AlertLog interface {
	Append(ctx context.Context, patientID string, alert fusion.Alert) (*alerts.Record, error)
}

// HistoryLog appends raw readings.
type HistoryLog interface {
	Append(ctx context.Context, record *history.Record) error
}

// Notifier is told about appended alerts. Delivery is best effort and must
// never fail the ingest call.
type Notifier interface {
	NotifyAlert(ctx context.Context, patient *patients.Patient, record *alerts.Record)
}

// Submission is one device push: parsed metrics plus the opaque payload and
// the device's own clock, both kept for display only.
type Submission struct {
	Metrics         fusion.SensorReading
	Raw             json.RawMessage
	DeviceTimestamp json.RawMessage
}

// Result reports the outcome of an accepted reading.
type Result struct {
	MetricID string
	Metrics  fusion.PatientMetrics
}

// Service orchestrates one ingest call: authenticate the device, fuse the
// reading into the bound patient's aggregate, persist, append logs, emit
// alerts. The read-fuse-write is deliberately not serialized across
// concurrent calls; the final save is last-write-wins.
type Service struct {
	registry DeviceAuthenticator
	patients PatientStore
	alerts   AlertLog
	history  HistoryLog
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithNotifier attaches an alert notifier.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs an ingest service.
func NewService(registry DeviceAuthenticator, patientStore PatientStore, alertLog AlertLog, historyLog HistoryLog, logger *zap.Logger, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("ingest: nil registry")
	}
	if patientStore == nil {
		return nil, errors.New("ingest: nil patient store")
	}
	if alertLog == nil {
		return nil, errors.New("ingest: nil alert log")
	}
	if historyLog == nil {
		return nil, errors.New("ingest: nil history log")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		registry: registry,
		patients: patientStore,
		alerts:   alertLog,
		history:  historyLog,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Ingest applies one reading from an authenticated device.
func (s *Service) Ingest(ctx context.Context, deviceID, apiKey string, submission Submission) (*Result, error) {
	device, err := s.registry.Authenticate(ctx, deviceID, apiKey)
	if err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, device.UserID, device.PatientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reading := submission.Metrics
	reading.Raw = submission.Raw

	next, emitted := fusion.Apply(patient.Metrics, reading, now)

	record := &history.Record{
		ID:              history.NewRecordID(now),
		DeviceID:        device.DeviceID,
		PatientID:       device.PatientID,
		Timestamp:       now,
		DeviceTimestamp: submission.DeviceTimestamp,
		Metrics:         reading,
		Raw:             submission.Raw,
	}
	if err := s.history.Append(ctx, record); err != nil {
		return nil, err
	}

	patient.Metrics = next
	patient.LastUpdate = &now
	if err := s.patients.Save(ctx, patient); err != nil {
		return nil, err
	}

	// The aggregate is already saved; a failed alert append is accepted
	// partial state and must not fail the call.
	for _, alert := range emitted {
		stored, err := s.alerts.Append(ctx, device.PatientID, alert)
		if err != nil {
			s.logger.Error("alert append failed",
				zap.String("patientId", device.PatientID),
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		metrics.AlertEmitted(string(alert.Type))
		s.logger.Warn("alert emitted",
			zap.String("patientId", device.PatientID),
			zap.String("type", string(alert.Type)),
		)
		if s.notifier != nil {
			s.notifier.NotifyAlert(ctx, patient, stored)
		}
	}

	return &Result{MetricID: record.ID, Metrics: next}, nil
}

// ResetDaily zeroes the bound patient's daily tallies on behalf of an
// authenticated device.
func (s *Service) ResetDaily(ctx context.Context, deviceID, apiKey string) error {
	device, err := s.registry.Authenticate(ctx, deviceID, apiKey)
	if err != nil {
		return err
	}

	patient, err := s.patients.Get(ctx, device.UserID, device.PatientID)
	if err != nil {
		return err
	}

	now := s.now()
	patient.Metrics = fusion.ResetDaily(patient.Metrics)
	patient.LastUpdate = &now
	if err := s.patients.Save(ctx, patient); err != nil {
		return err
	}
	s.logger.Info("daily metrics reset", zap.String("patientId", device.PatientID))
	return nil
}
