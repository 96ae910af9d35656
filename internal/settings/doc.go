// Package settings implements the device settings reconciliation engine.
//
// Each device has one settings record: an ordered list of slots, each
// holding a current value (the device's last confirmed truth) and an
// optional pending value (a backend-desired change not yet confirmed).
// The engine converges the two sides over an unreliable transport that
// reorders and duplicates messages, so every mutation is field-level and
// idempotent.
//
// The conflict policy is asymmetric. The device is authoritative for what
// currently holds on the hardware, so an inbound report always overwrites
// current. The backend is authoritative for what should eventually hold,
// so pending survives a mismatching report and is only cleared when the
// device confirms the exact pending value, either by reporting it or by
// acknowledging it.
package settings
