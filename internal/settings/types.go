package settings

import "time"

// SyncStatus is the record-level reconciliation state. It is a single
// global value per record, recomputed after every mutating operation, and
// is StatusSynced exactly when no slot carries a pending value.
type SyncStatus string

const (
	// StatusSynced means device and backend agree on every slot.
	StatusSynced SyncStatus = "synced"

	// StatusPendingToDevice means the backend holds desired values the
	// device has not yet been confirmed to have applied.
	StatusPendingToDevice SyncStatus = "pending_to_device"

	// StatusPendingFromDevice means the device has reported state while
	// backend-desired values are still awaiting its confirmation.
	StatusPendingFromDevice SyncStatus = "pending_from_device"
)

// Slot is one named setting with the device's last confirmed value and an
// optional backend-desired change. Values are nil, string, int64 or bool.
type Slot struct {
	Name    string `json:"name"`
	Current any    `json:"current"`
	Pending any    `json:"pending"`
}

// Record is the per-device settings state. It is a pure data struct; all
// reconciliation logic lives in the Engine and the repository owns the
// persistence shape.
type Record struct {
	DeviceID   int64      `json:"device_id"`
	Slots      []Slot     `json:"slots"`
	SyncStatus SyncStatus `json:"sync_status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// NewRecord returns a record populated with the slot table defaults.
func NewRecord(deviceID int64) *Record {
	slots := make([]Slot, len(slotTable))
	for i, def := range slotTable {
		slots[i] = Slot{Name: def.Name, Current: def.Default}
	}
	return &Record{
		DeviceID:   deviceID,
		Slots:      slots,
		SyncStatus: StatusSynced,
	}
}

// Slot returns the named slot, or nil if the name is not in the record.
func (r *Record) Slot(name string) *Slot {
	for i := range r.Slots {
		if r.Slots[i].Name == name {
			return &r.Slots[i]
		}
	}
	return nil
}

// HasPending reports whether any slot carries a pending value.
func (r *Record) HasPending() bool {
	for i := range r.Slots {
		if r.Slots[i].Pending != nil {
			return true
		}
	}
	return false
}
