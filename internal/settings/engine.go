package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
	"github.com/wihajster/wihajster-core/internal/infrastructure/mqtt"
)

// Publisher is the outbound transport slice the engine needs.
type Publisher interface {
	PublishJSON(topic string, payload []byte) error
}

// DeviceRegistry answers whether a device id is provisioned. Records are
// never synthesized for devices the registry does not know.
type DeviceRegistry interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Engine owns the reconciliation algorithm over per-device settings
// records.
//
// Handlers may run concurrently for distinct devices, so every operation
// takes a per-device lock around its read-modify-write batch. Within one
// device, operations therefore apply atomically and in call order.
type Engine struct {
	repo    Repository
	devices DeviceRegistry
	pub     Publisher
	topics  mqtt.Topics
	log     *logging.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine creates a reconciliation engine. If log is nil the default
// logger is used.
func NewEngine(repo Repository, devices DeviceRegistry, pub Publisher, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{
		repo:    repo,
		devices: devices,
		pub:     pub,
		log:     log,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// lockDevice takes the per-device mutex and returns its unlock function.
// Lock entries are never reclaimed; device ids are stable and the fleet
// is small.
func (e *Engine) lockDevice(deviceID int64) func() {
	e.mu.Lock()
	m, ok := e.locks[deviceID]
	if !ok {
		m = &sync.Mutex{}
		e.locks[deviceID] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// load fetches the device's record, creating it with defaults when absent
// and the device is known to the registry. Caller holds the device lock.
func (e *Engine) load(ctx context.Context, deviceID int64) (*Record, error) {
	rec, err := e.repo.Get(ctx, deviceID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	known, err := e.devices.Exists(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("checking device registry: %w", err)
	}
	if !known {
		return nil, ErrUnknownDevice
	}

	rec = NewRecord(deviceID)
	if err := e.repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating default record: %w", err)
	}
	e.log.Info("created default settings record", "device_id", deviceID)
	return rec, nil
}

// GetOrCreate returns the device's settings record, creating it with
// defaults on first reference. Returns ErrUnknownDevice for devices the
// registry does not know.
func (e *Engine) GetOrCreate(ctx context.Context, deviceID int64) (*Record, error) {
	defer e.lockDevice(deviceID)()
	return e.load(ctx, deviceID)
}

// RequestUpdate stages backend-desired values. A requested value equal to
// the slot's current value is a no-op for that slot, so an already synced
// record stays synced and no spurious sync traffic is generated. Null
// values are skipped; a slot cannot be staged back to unset through an
// update (ClearAllPending abandons staged changes instead).
//
// The update only mutates backend state; delivery happens on the next
// TriggerSync (explicit, presence-online or device pull).
func (e *Engine) RequestUpdate(ctx context.Context, deviceID int64, fields map[string]any) (*Record, error) {
	defer e.lockDevice(deviceID)()

	rec, err := e.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	changed := false
	for name, raw := range fields {
		def, ok := lookupSlot(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, name)
		}
		v, err := normalize(def, raw)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}

		slot := rec.Slot(name)
		if valuesEqual(v, slot.Current) {
			continue
		}
		slot.Pending = v
		changed = true
	}

	if changed {
		rec.SyncStatus = StatusPendingToDevice
		if err := e.repo.Save(ctx, rec); err != nil {
			return nil, err
		}
		e.log.Info("staged settings update", "device_id", deviceID, "sync_status", rec.SyncStatus)
	}
	return rec, nil
}

// BuildSyncPayload flattens a record into the wire shape pushed to the
// device: every slot's current value under its canonical key and its
// pending value (or null) under the "new_" prefixed key. The device uses
// the full picture to self-diagnose drift.
func BuildSyncPayload(rec *Record) map[string]any {
	payload := make(map[string]any, 2*len(rec.Slots))
	for i := range rec.Slots {
		s := &rec.Slots[i]
		payload[s.Name] = s.Current
		payload["new_"+s.Name] = s.Pending
	}
	return payload
}

// TriggerSync publishes the device's full settings picture to its
// settings_sync topic. Called on presence-online, on operator request and
// when the device itself asks for a sync.
func (e *Engine) TriggerSync(ctx context.Context, deviceID int64) error {
	defer e.lockDevice(deviceID)()

	rec, err := e.load(ctx, deviceID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(BuildSyncPayload(rec))
	if err != nil {
		return fmt.Errorf("encoding sync payload: %w", err)
	}
	if err := e.pub.PublishJSON(e.topics.SettingsSync(deviceID), body); err != nil {
		return fmt.Errorf("publishing sync payload: %w", err)
	}

	if rec.HasPending() && rec.SyncStatus != StatusPendingToDevice {
		rec.SyncStatus = StatusPendingToDevice
		if err := e.repo.Save(ctx, rec); err != nil {
			return err
		}
	}

	e.log.Debug("published settings sync", "device_id", deviceID, "pending", rec.HasPending())
	return nil
}

// ApplyDeviceReport applies actual values the device reported on its
// settings_report topic. Per reported slot: the device wins on current
// (it is the physical source of truth), and pending is cleared only when
// the report matches it exactly, meaning the device already achieved the
// desired value. Unknown or malformed slots are skipped with a warning.
//
// Applying the same report twice yields the same record, so duplicated or
// reordered deliveries are harmless. A report never creates a record;
// ErrRecordNotFound is returned for devices without one.
func (e *Engine) ApplyDeviceReport(ctx context.Context, deviceID int64, reported map[string]any) error {
	defer e.lockDevice(deviceID)()

	rec, err := e.repo.Get(ctx, deviceID)
	if err != nil {
		return err
	}

	for name, raw := range reported {
		def, ok := lookupSlot(name)
		if !ok {
			e.log.Warn("ignoring unknown slot in device report", "device_id", deviceID, "slot", name)
			continue
		}
		v, err := normalize(def, raw)
		if err != nil {
			e.log.Warn("ignoring malformed slot in device report", "device_id", deviceID, "slot", name, "error", err)
			continue
		}

		slot := rec.Slot(name)
		if !valuesEqual(v, slot.Current) {
			slot.Current = v
		}
		if slot.Pending != nil && valuesEqual(slot.Pending, v) {
			slot.Pending = nil
		}
	}

	e.finishRound(rec, StatusPendingFromDevice)
	if err := e.repo.Save(ctx, rec); err != nil {
		return err
	}
	e.log.Info("applied device report", "device_id", deviceID, "sync_status", rec.SyncStatus)
	return nil
}

// ApplyAcknowledgement moves pending values to current for the slots the
// device confirmed it applied. A named slot without a pending value is a
// no-op, which makes a duplicated ack harmless. An ack never creates a
// record.
func (e *Engine) ApplyAcknowledgement(ctx context.Context, deviceID int64, appliedFields []string) error {
	defer e.lockDevice(deviceID)()

	rec, err := e.repo.Get(ctx, deviceID)
	if err != nil {
		return err
	}

	for _, name := range appliedFields {
		slot := rec.Slot(name)
		if slot == nil {
			e.log.Warn("ignoring unknown slot in ack", "device_id", deviceID, "slot", name)
			continue
		}
		if slot.Pending == nil {
			continue
		}
		slot.Current = slot.Pending
		slot.Pending = nil
	}

	e.finishRound(rec, StatusPendingToDevice)
	if err := e.repo.Save(ctx, rec); err != nil {
		return err
	}
	e.log.Info("applied settings ack", "device_id", deviceID, "fields", appliedFields, "sync_status", rec.SyncStatus)
	return nil
}

// ClearAllPending abandons every staged change without contacting the
// device. Used to give up on an unreachable device or a rejected change.
func (e *Engine) ClearAllPending(ctx context.Context, deviceID int64) (*Record, error) {
	defer e.lockDevice(deviceID)()

	rec, err := e.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	for i := range rec.Slots {
		rec.Slots[i].Pending = nil
	}
	rec.SyncStatus = StatusSynced

	if err := e.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	e.log.Info("cleared pending settings", "device_id", deviceID)
	return rec, nil
}

// finishRound stamps the reconciliation round and recomputes the global
// sync status: synced exactly when no pending values remain, otherwise
// the status the finished round implies.
func (e *Engine) finishRound(rec *Record, remaining SyncStatus) {
	now := time.Now().UTC()
	rec.LastSyncAt = &now
	if rec.HasPending() {
		rec.SyncStatus = remaining
	} else {
		rec.SyncStatus = StatusSynced
	}
}
