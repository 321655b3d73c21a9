package devices

import (
	"context"
	"errors"
	"strings"
	"testing"

	"eldercare-cloud/internal/patients"

	"go.uber.org/zap"
)

type stubStore struct {
	byID     map[string]*Device
	inserted *Device
	err      error
}

func (s *stubStore) Get(_ context.Context, deviceID string) (*Device, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[deviceID], nil
}

func (s *stubStore) Insert(_ context.Context, device *Device) error {
	s.inserted = device
	return s.err
}

type stubPatientGetter struct {
	patient *patients.Patient
	err     error
}

func (s *stubPatientGetter) Get(_ context.Context, _, _ string) (*patients.Patient, error) {
	return s.patient, s.err
}

func newTestRegistry(t *testing.T, store Store, getter PatientGetter) *Registry {
	t.Helper()
	registry, err := NewRegistry(store, getter, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

func TestRegisterGeneratesCredentials(t *testing.T) {
	store := &stubStore{}
	getter := &stubPatientGetter{patient: &patients.Patient{ID: "pat-1", UserID: "user-1", Name: "Rosa", Age: 81}}
	registry := newTestRegistry(t, store, getter)

	device, err := registry.Register(context.Background(), "user-1", "pat-1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if device.DeviceID == "" || device.APIKey == "" {
		t.Fatalf("credentials not generated: %+v", device)
	}
	if strings.Contains(device.APIKey, "-") {
		t.Errorf("api key should be dashless: %q", device.APIKey)
	}
	if device.DeviceName != "Sensor - Rosa" {
		t.Errorf("default name = %q", device.DeviceName)
	}
	if store.inserted == nil || store.inserted.DeviceID != device.DeviceID {
		t.Fatal("device not persisted")
	}
}

func TestRegisterKeepsExplicitName(t *testing.T) {
	store := &stubStore{}
	getter := &stubPatientGetter{patient: &patients.Patient{ID: "pat-1", UserID: "user-1", Name: "Rosa", Age: 81}}
	registry := newTestRegistry(t, store, getter)

	device, err := registry.Register(context.Background(), "user-1", "pat-1", "Hallway sensor")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if device.DeviceName != "Hallway sensor" {
		t.Errorf("name = %q", device.DeviceName)
	}
}

func TestRegisterUnknownPatient(t *testing.T) {
	registry := newTestRegistry(t, &stubStore{}, &stubPatientGetter{err: patients.ErrNotFound})

	if _, err := registry.Register(context.Background(), "user-1", "missing", ""); !errors.Is(err, patients.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAuthenticate(t *testing.T) {
	store := &stubStore{byID: map[string]*Device{
		"dev-1": {DeviceID: "dev-1", APIKey: "good", PatientID: "pat-1", UserID: "user-1"},
	}}
	registry := newTestRegistry(t, store, &stubPatientGetter{})

	device, err := registry.Authenticate(context.Background(), "dev-1", "good")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if device.PatientID != "pat-1" {
		t.Errorf("patient binding = %q", device.PatientID)
	}

	cases := []struct {
		name     string
		deviceID string
		apiKey   string
	}{
		{"wrong key", "dev-1", "bad"},
		{"unknown device", "dev-9", "good"},
		{"empty id", "", "good"},
		{"empty key", "dev-1", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := registry.Authenticate(context.Background(), tc.deviceID, tc.apiKey); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}
