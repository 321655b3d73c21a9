package devices

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"eldercare-cloud/internal/patients"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PatientGetter resolves a patient owned by a caregiver.
type PatientGetter interface {
	Get(ctx context.Context, userID, patientID string) (*patients.Patient, error)
}

// Store persists devices.
type Store interface {
	Get(ctx context.Context, deviceID string) (*Device, error)
	Insert(ctx context.Context, device *Device) error
}

// Registry registers devices for patients and authenticates their
// credentials on every ingest call.
type Registry struct {
	store    Store
	patients PatientGetter
	cache    *Cache
	logger   *zap.Logger
}

// NewRegistry constructs a registry. cache may be nil.
func NewRegistry(store Store, patientGetter PatientGetter, cache *Cache, logger *zap.Logger) (*Registry, error) {
	if store == nil {
		return nil, errors.New("devices registry: nil store")
	}
	if patientGetter == nil {
		return nil, errors.New("devices registry: nil patient getter")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, patients: patientGetter, cache: cache, logger: logger}, nil
}

// Register creates a device bound to a patient owned by userID. The
// returned Device is the only place the api key is ever exposed.
func (r *Registry) Register(ctx context.Context, userID, patientID, deviceName string) (*Device, error) {
	patient, err := r.patients.Get(ctx, userID, patientID)
	if err != nil {
		return nil, err
	}
	if deviceName == "" {
		deviceName = fmt.Sprintf("Sensor - %s", patient.Name)
	}

	device := &Device{
		DeviceID:   uuid.NewString(),
		APIKey:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		DeviceName: deviceName,
		PatientID:  patientID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.Insert(ctx, device); err != nil {
		return nil, err
	}
	r.logger.Info("device registered",
		zap.String("deviceId", device.DeviceID),
		zap.String("patientId", patientID),
	)
	return device, nil
}

// Authenticate resolves device credentials to the registered device.
// Returns ErrUnauthorized for an unknown id or a key mismatch.
func (r *Registry) Authenticate(ctx context.Context, deviceID, apiKey string) (*Device, error) {
	if deviceID == "" || apiKey == "" {
		return nil, ErrUnauthorized
	}

	device := r.cache.Get(ctx, deviceID)
	if device == nil {
		var err error
		device, err = r.store.Get(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		if device == nil {
			return nil, ErrUnauthorized
		}
		if err := r.cache.Put(ctx, device); err != nil {
			r.logger.Warn("device cache put failed", zap.String("deviceId", deviceID), zap.Error(err))
		}
	}

	if subtle.ConstantTimeCompare([]byte(device.APIKey), []byte(apiKey)) != 1 {
		return nil, ErrUnauthorized
	}
	return device, nil
}
