package settings

import "errors"

var (
	// ErrRecordNotFound is returned when no settings record exists for a
	// device. Reports and acks never create records, so handlers treat
	// this as a drop-with-warning condition.
	ErrRecordNotFound = errors.New("settings: record not found")

	// ErrUnknownDevice is returned when a record would be created for a
	// device id the registry does not know.
	ErrUnknownDevice = errors.New("settings: unknown device")

	// ErrUnknownSlot is returned when an update names a setting that is
	// not in the slot table.
	ErrUnknownSlot = errors.New("settings: unknown slot")

	// ErrInvalidValue is returned when a value does not match its slot's
	// declared kind.
	ErrInvalidValue = errors.New("settings: invalid value")
)
