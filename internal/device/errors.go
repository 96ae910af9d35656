package device

import "errors"

var (
	// ErrDeviceNotFound is returned when a device id is not registered.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device whose serial
	// number is already registered.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrNoActiveOwnership is returned when a device has no active owner.
	// Measurements for such devices are dropped, not orphaned.
	ErrNoActiveOwnership = errors.New("device: no active ownership")
)
