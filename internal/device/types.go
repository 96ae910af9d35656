package device

import "time"

// Device is one registered sensor node.
//
// Devices are provisioned out of band (factory or commissioning flow);
// the core never synthesizes a device from MQTT traffic alone.
type Device struct {
	ID           int64     `json:"id"`
	SerialNumber string    `json:"serial_number"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ownership links a device to a user for a period of time.
//
// A device may pass through a succession of owners; at most one ownership
// per device is active at a time, and measurement rows attach to the
// ownership rather than the device so a new owner never sees the previous
// owner's data.
type Ownership struct {
	ID            int64      `json:"id"`
	DeviceID      int64      `json:"device_id"`
	UserID        int64      `json:"user_id"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}
