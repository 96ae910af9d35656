// Package presence tracks device online/offline announcements.
//
// State lives only in memory and is rebuilt from traffic after a
// restart; devices re-announce themselves, and the broker delivers a
// last-will offline on their behalf when they drop without saying
// goodbye. An online transition is the primary trigger for a settings
// re-sync. Offline is recorded and nothing more: no traffic is queued
// for absent devices, the next online sync carries the full picture
// anyway.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
)

// Syncer is the reconciliation trigger fired on an online transition.
type Syncer interface {
	TriggerSync(ctx context.Context, deviceID int64) error
}

// State is one device's last announced presence.
type State struct {
	Online    bool      `json:"online"`
	Reason    string    `json:"reason,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// message is the presence/{id} wire format, also used by the legacy
// status/{id} family.
type message struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Tracker holds per-device presence and drives online-triggered syncs.
type Tracker struct {
	syncer Syncer
	log    *logging.Logger

	mu     sync.RWMutex
	states map[int64]State
}

// NewTracker creates a presence tracker. If log is nil the default
// logger is used.
func NewTracker(syncer Syncer, log *logging.Logger) *Tracker {
	if log == nil {
		log = logging.Default()
	}
	return &Tracker{
		syncer: syncer,
		log:    log,
		states: make(map[int64]State),
	}
}

// HandleMessage processes one presence payload. Every online message
// fires a settings sync, even a repeated one; the sync payload is full
// state, so re-triggering is harmless and self-healing. A sync failure
// is logged but does not fail the handler, the presence fact itself has
// already been recorded.
func (t *Tracker) HandleMessage(ctx context.Context, deviceID int64, payload []byte) error {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding presence payload: %w", err)
	}

	var online bool
	switch msg.Status {
	case "online":
		online = true
	case "offline":
		online = false
	default:
		return fmt.Errorf("unknown presence status %q", msg.Status)
	}

	t.mu.Lock()
	t.states[deviceID] = State{Online: online, Reason: msg.Reason, ChangedAt: time.Now().UTC()}
	t.mu.Unlock()

	t.log.Info("device presence changed", "device_id", deviceID, "status", msg.Status, "reason", msg.Reason)

	if online {
		if err := t.syncer.TriggerSync(ctx, deviceID); err != nil {
			t.log.Warn("online sync trigger failed", "device_id", deviceID, "error", err)
		}
	}
	return nil
}

// Get returns the last known presence for a device. The second return
// is false when the device has not announced itself since startup.
func (t *Tracker) Get(deviceID int64) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[deviceID]
	return s, ok
}

// Snapshot returns a copy of all known presence states.
func (t *Tracker) Snapshot() map[int64]State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[int64]State, len(t.states))
	for id, s := range t.states {
		out[id] = s
	}
	return out
}
