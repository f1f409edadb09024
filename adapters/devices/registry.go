package devices

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawhaven/voicecore/domain/entities"
)

// ErrDeviceNotFound is returned when no device matches the lookup.
var ErrDeviceNotFound = errors.New("device not found")

// ErrInvalidCredentials is returned when the serial number exists but
// the secret does not match.
var ErrInvalidCredentials = errors.New("invalid device credentials")

// Registry is an in-memory device directory used for authentication.
// Provisioning happens out of band; the registry only answers
// credential checks and lookups.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*entities.Device
	bySerial map[string]*entities.Device
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]*entities.Device),
		bySerial: make(map[string]*entities.Device),
	}
}

// Register adds a device, generating an id when absent. A duplicate
// serial number is rejected.
func (r *Registry) Register(device *entities.Device) error {
	if err := device.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySerial[device.SerialNumber]; exists {
		return errors.New("device with this serial number already exists")
	}

	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now

	stored := *device
	r.byID[stored.ID] = &stored
	r.bySerial[stored.SerialNumber] = &stored
	return nil
}

// ValidateCredentials checks a serial number and secret pair and
// returns the matching device.
func (r *Registry) ValidateCredentials(serialNumber, secret string) (*entities.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, exists := r.bySerial[serialNumber]
	if !exists {
		return nil, ErrDeviceNotFound
	}
	if device.SecretKey != secret {
		return nil, ErrInvalidCredentials
	}

	copied := *device
	return &copied, nil
}

// GetByID looks a device up by its generated id.
func (r *Registry) GetByID(id string) (*entities.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, exists := r.byID[id]
	if !exists {
		return nil, ErrDeviceNotFound
	}

	copied := *device
	return &copied, nil
}
