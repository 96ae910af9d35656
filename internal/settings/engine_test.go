package settings

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

// memRepo is an in-memory Repository. It clones on both paths so stored
// records behave like database rows, not shared pointers.
type memRepo struct {
	recs map[int64]*Record
}

func newMemRepo() *memRepo {
	return &memRepo{recs: make(map[int64]*Record)}
}

func (m *memRepo) Get(_ context.Context, deviceID int64) (*Record, error) {
	rec, ok := m.recs[deviceID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (m *memRepo) Save(_ context.Context, rec *Record) error {
	m.recs[rec.DeviceID] = cloneRecord(rec)
	return nil
}

func cloneRecord(rec *Record) *Record {
	c := *rec
	c.Slots = append([]Slot(nil), rec.Slots...)
	return &c
}

type memRegistry struct {
	known map[int64]bool
}

func (m *memRegistry) Exists(_ context.Context, id int64) (bool, error) {
	return m.known[id], nil
}

// capturePublisher records published payloads after a JSON round trip,
// the same shape a subscriber would decode.
type capturePublisher struct {
	topics   []string
	payloads []map[string]any
	err      error
}

func (p *capturePublisher) PublishJSON(topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, m)
	return nil
}

const testDeviceID = int64(42)

func newTestEngine() (*Engine, *memRepo, *capturePublisher) {
	repo := newMemRepo()
	pub := &capturePublisher{}
	reg := &memRegistry{known: map[int64]bool{testDeviceID: true}}
	return NewEngine(repo, reg, pub, nil), repo, pub
}

// checkStatusInvariant verifies syncStatus == synced exactly when no slot
// has a pending value.
func checkStatusInvariant(t *testing.T, rec *Record) {
	t.Helper()
	if (rec.SyncStatus == StatusSynced) == rec.HasPending() {
		t.Errorf("status invariant violated: status=%s hasPending=%v", rec.SyncStatus, rec.HasPending())
	}
}

func TestGetOrCreateDefaults(t *testing.T) {
	engine, _, _ := newTestEngine()

	rec, err := engine.GetOrCreate(context.Background(), testDeviceID)
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	if rec.SyncStatus != StatusSynced {
		t.Errorf("new record status = %s, want synced", rec.SyncStatus)
	}
	if got := rec.Slot("led_brightness").Current; got != int64(100) {
		t.Errorf("led_brightness default = %v, want 100", got)
	}
	if got := rec.Slot("ble_enabled").Current; got != true {
		t.Errorf("ble_enabled default = %v, want true", got)
	}
	if got := rec.Slot("wifi_ssid").Current; got != nil {
		t.Errorf("wifi_ssid default = %v, want nil", got)
	}
	checkStatusInvariant(t, rec)
}

func TestGetOrCreateUnknownDevice(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.GetOrCreate(context.Background(), 999)
	if !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("GetOrCreate(999) error = %v, want ErrUnknownDevice", err)
	}
}

func TestRequestUpdateStagesPending(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	rec, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{"led_brightness": float64(50)})
	if err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}

	slot := rec.Slot("led_brightness")
	if slot.Current != int64(100) || slot.Pending != int64(50) {
		t.Errorf("slot = %+v, want current=100 pending=50", slot)
	}
	if rec.SyncStatus != StatusPendingToDevice {
		t.Errorf("status = %s, want pending_to_device", rec.SyncStatus)
	}
	checkStatusInvariant(t, rec)
}

func TestRequestUpdateNoSpuriousPending(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	// Requesting the value the device already holds must not stage
	// anything or flip the status away from synced.
	rec, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{"led_brightness": float64(100)})
	if err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}

	if rec.Slot("led_brightness").Pending != nil {
		t.Errorf("pending = %v, want nil", rec.Slot("led_brightness").Pending)
	}
	if rec.SyncStatus != StatusSynced {
		t.Errorf("status = %s, want synced", rec.SyncStatus)
	}
}

func TestRequestUpdateSkipsNullValues(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.GetOrCreate(ctx, testDeviceID); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	// Seed a current value so a null could look like a change.
	if err := engine.ApplyDeviceReport(ctx, testDeviceID, map[string]any{"wifi_ssid": "HomeNet"}); err != nil {
		t.Fatalf("seeding report: %v", err)
	}

	// A null field must not stage anything, and in particular must not
	// flip the status to pending with no pending value behind it.
	rec, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{"wifi_ssid": nil})
	if err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}

	if rec.Slot("wifi_ssid").Pending != nil {
		t.Errorf("pending = %v, want nil", rec.Slot("wifi_ssid").Pending)
	}
	if rec.Slot("wifi_ssid").Current != "HomeNet" {
		t.Errorf("current = %v, want HomeNet", rec.Slot("wifi_ssid").Current)
	}
	if rec.SyncStatus != StatusSynced {
		t.Errorf("status = %s, want synced", rec.SyncStatus)
	}
	checkStatusInvariant(t, rec)
}

func TestRequestUpdateRejectsUnknownSlot(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.RequestUpdate(context.Background(), testDeviceID, map[string]any{"warp_drive": true})
	if !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("RequestUpdate() error = %v, want ErrUnknownSlot", err)
	}
}

func TestRequestUpdateRejectsWrongKind(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.RequestUpdate(context.Background(), testDeviceID, map[string]any{"led_brightness": "bright"})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("RequestUpdate() error = %v, want ErrInvalidValue", err)
	}
}

func TestBuildSyncPayload(t *testing.T) {
	rec := NewRecord(testDeviceID)
	rec.Slot("led_brightness").Pending = int64(50)

	payload := BuildSyncPayload(rec)

	if payload["led_brightness"] != int64(100) {
		t.Errorf("payload[led_brightness] = %v, want 100", payload["led_brightness"])
	}
	if payload["new_led_brightness"] != int64(50) {
		t.Errorf("payload[new_led_brightness] = %v, want 50", payload["new_led_brightness"])
	}
	if v, ok := payload["new_wifi_ssid"]; !ok || v != nil {
		t.Errorf("payload[new_wifi_ssid] = %v (present=%v), want explicit null", v, ok)
	}
	if len(payload) != 2*len(slotTable) {
		t.Errorf("payload has %d keys, want %d", len(payload), 2*len(slotTable))
	}
}

func TestTriggerSyncPublishes(t *testing.T) {
	engine, _, pub := newTestEngine()
	ctx := context.Background()

	if _, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{"led_brightness": float64(50)}); err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}
	if err := engine.TriggerSync(ctx, testDeviceID); err != nil {
		t.Fatalf("TriggerSync() error: %v", err)
	}

	if len(pub.topics) != 1 || pub.topics[0] != "settings_sync/42" {
		t.Fatalf("published topics = %v, want [settings_sync/42]", pub.topics)
	}
	payload := pub.payloads[0]
	if payload["led_brightness"] != float64(100) || payload["new_led_brightness"] != float64(50) {
		t.Errorf("sync payload = %v, want led_brightness=100 new_led_brightness=50", payload)
	}
}

func TestApplyDeviceReportDeviceWins(t *testing.T) {
	engine, repo, _ := newTestEngine()
	ctx := context.Background()

	// current=100, pending=50, device reports 75: current follows the
	// device, pending survives because the device did not reach it.
	if _, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{"led_brightness": float64(50)}); err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}
	if err := engine.ApplyDeviceReport(ctx, testDeviceID, map[string]any{"led_brightness": float64(75)}); err != nil {
		t.Fatalf("ApplyDeviceReport() error: %v", err)
	}

	rec := repo.recs[testDeviceID]
	slot := rec.Slot("led_brightness")
	if slot.Current != int64(75) || slot.Pending != int64(50) {
		t.Errorf("slot = %+v, want current=75 pending=50", slot)
	}
	if rec.LastSyncAt == nil {
		t.Error("LastSyncAt not stamped")
	}
	checkStatusInvariant(t, rec)
}

func TestApplyDeviceReportConfirmsDesired(t *testing.T) {
	engine, repo, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{"led_brightness": float64(50)}); err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}
	if err := engine.ApplyDeviceReport(ctx, testDeviceID, map[string]any{"led_brightness": float64(50)}); err != nil {
		t.Fatalf("ApplyDeviceReport() error: %v", err)
	}

	rec := repo.recs[testDeviceID]
	slot := rec.Slot("led_brightness")
	if slot.Current != int64(50) || slot.Pending != nil {
		t.Errorf("slot = %+v, want current=50 pending=nil", slot)
	}
	if rec.SyncStatus != StatusSynced {
		t.Errorf("status = %s, want synced", rec.SyncStatus)
	}
}

func TestApplyDeviceReportIdempotent(t *testing.T) {
	engine, repo, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{
		"led_brightness": float64(50),
		"wifi_ssid":      "NewNet",
	}); err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}

	report := map[string]any{"led_brightness": float64(75), "wifi_ssid": "NewNet"}
	if err := engine.ApplyDeviceReport(ctx, testDeviceID, report); err != nil {
		t.Fatalf("first ApplyDeviceReport() error: %v", err)
	}
	first := cloneRecord(repo.recs[testDeviceID])

	if err := engine.ApplyDeviceReport(ctx, testDeviceID, report); err != nil {
		t.Fatalf("second ApplyDeviceReport() error: %v", err)
	}
	second := repo.recs[testDeviceID]

	if !reflect.DeepEqual(first.Slots, second.Slots) || first.SyncStatus != second.SyncStatus {
		t.Errorf("report not idempotent:\nfirst  %+v %s\nsecond %+v %s",
			first.Slots, first.SyncStatus, second.Slots, second.SyncStatus)
	}
	checkStatusInvariant(t, second)
}

func TestApplyDeviceReportSkipsUnknownAndMalformed(t *testing.T) {
	engine, repo, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.GetOrCreate(ctx, testDeviceID); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	err := engine.ApplyDeviceReport(ctx, testDeviceID, map[string]any{
		"not_a_slot":     float64(1),
		"led_brightness": "bright",
		"device_mode":    float64(2),
	})
	if err != nil {
		t.Fatalf("ApplyDeviceReport() error: %v", err)
	}

	rec := repo.recs[testDeviceID]
	if rec.Slot("device_mode").Current != int64(2) {
		t.Errorf("device_mode = %v, want 2", rec.Slot("device_mode").Current)
	}
	if rec.Slot("led_brightness").Current != int64(100) {
		t.Errorf("led_brightness = %v, want untouched 100", rec.Slot("led_brightness").Current)
	}
}

func TestApplyDeviceReportNoRecord(t *testing.T) {
	engine, _, _ := newTestEngine()

	// Reports never synthesize records.
	err := engine.ApplyDeviceReport(context.Background(), testDeviceID, map[string]any{"device_mode": float64(1)})
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("ApplyDeviceReport() error = %v, want ErrRecordNotFound", err)
	}
}

func TestApplyAcknowledgementIdempotent(t *testing.T) {
	engine, repo, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{"led_brightness": float64(50)}); err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}

	if err := engine.ApplyAcknowledgement(ctx, testDeviceID, []string{"led_brightness"}); err != nil {
		t.Fatalf("first ApplyAcknowledgement() error: %v", err)
	}
	first := cloneRecord(repo.recs[testDeviceID])

	// Second delivery of the same ack finds no pending and is a no-op.
	if err := engine.ApplyAcknowledgement(ctx, testDeviceID, []string{"led_brightness"}); err != nil {
		t.Fatalf("second ApplyAcknowledgement() error: %v", err)
	}
	second := repo.recs[testDeviceID]

	if !reflect.DeepEqual(first.Slots, second.Slots) || first.SyncStatus != second.SyncStatus {
		t.Errorf("ack not idempotent:\nfirst  %+v %s\nsecond %+v %s",
			first.Slots, first.SyncStatus, second.Slots, second.SyncStatus)
	}
	if slot := second.Slot("led_brightness"); slot.Current != int64(50) || slot.Pending != nil {
		t.Errorf("slot = %+v, want current=50 pending=nil", slot)
	}
	checkStatusInvariant(t, second)
}

func TestApplyAcknowledgementPartial(t *testing.T) {
	engine, repo, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{
		"led_brightness": float64(50),
		"device_mode":    float64(1),
	}); err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}

	if err := engine.ApplyAcknowledgement(ctx, testDeviceID, []string{"led_brightness"}); err != nil {
		t.Fatalf("ApplyAcknowledgement() error: %v", err)
	}

	rec := repo.recs[testDeviceID]
	if rec.SyncStatus == StatusSynced {
		t.Error("status = synced with device_mode still pending")
	}
	if rec.Slot("device_mode").Pending != int64(1) {
		t.Errorf("device_mode pending = %v, want 1", rec.Slot("device_mode").Pending)
	}
	checkStatusInvariant(t, rec)
}

func TestClearAllPending(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{
		"led_brightness": float64(50),
		"wifi_ssid":      "NewNet",
	}); err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}

	rec, err := engine.ClearAllPending(ctx, testDeviceID)
	if err != nil {
		t.Fatalf("ClearAllPending() error: %v", err)
	}

	if rec.HasPending() {
		t.Error("pending values remain after ClearAllPending")
	}
	if rec.SyncStatus != StatusSynced {
		t.Errorf("status = %s, want synced", rec.SyncStatus)
	}
	// Current values are untouched; only desires are abandoned.
	if rec.Slot("led_brightness").Current != int64(100) {
		t.Errorf("led_brightness current = %v, want 100", rec.Slot("led_brightness").Current)
	}
}

// Full round trip: stage an update, sync on reconnect, device acks.
func TestScenarioUpdateSyncAck(t *testing.T) {
	engine, repo, pub := newTestEngine()
	ctx := context.Background()

	rec, err := engine.RequestUpdate(ctx, testDeviceID, map[string]any{"led_brightness": float64(50)})
	if err != nil {
		t.Fatalf("RequestUpdate() error: %v", err)
	}
	slot := rec.Slot("led_brightness")
	if slot.Current != int64(100) || slot.Pending != int64(50) || rec.SyncStatus != StatusPendingToDevice {
		t.Fatalf("after update: slot=%+v status=%s", slot, rec.SyncStatus)
	}

	// Presence-online fires a sync.
	if err := engine.TriggerSync(ctx, testDeviceID); err != nil {
		t.Fatalf("TriggerSync() error: %v", err)
	}
	payload := pub.payloads[0]
	if payload["led_brightness"] != float64(100) || payload["new_led_brightness"] != float64(50) {
		t.Fatalf("sync payload = %v", payload)
	}

	if err := engine.ApplyAcknowledgement(ctx, testDeviceID, []string{"led_brightness"}); err != nil {
		t.Fatalf("ApplyAcknowledgement() error: %v", err)
	}

	final := repo.recs[testDeviceID]
	slot = final.Slot("led_brightness")
	if slot.Current != int64(50) || slot.Pending != nil || final.SyncStatus != StatusSynced {
		t.Errorf("after ack: slot=%+v status=%s, want current=50 pending=nil synced", slot, final.SyncStatus)
	}
}

// Unsolicited report with no pending change: current follows the device
// and the record stays synced.
func TestScenarioUnsolicitedReport(t *testing.T) {
	engine, repo, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.GetOrCreate(ctx, testDeviceID); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	repo.recs[testDeviceID].Slot("wifi_ssid").Current = "OldNet"

	if err := engine.ApplyDeviceReport(ctx, testDeviceID, map[string]any{"wifi_ssid": "HomeNet"}); err != nil {
		t.Fatalf("ApplyDeviceReport() error: %v", err)
	}

	rec := repo.recs[testDeviceID]
	slot := rec.Slot("wifi_ssid")
	if slot.Current != "HomeNet" || slot.Pending != nil {
		t.Errorf("slot = %+v, want current=HomeNet pending=nil", slot)
	}
	if rec.SyncStatus != StatusSynced {
		t.Errorf("status = %s, want synced", rec.SyncStatus)
	}
}
