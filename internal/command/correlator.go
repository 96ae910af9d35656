package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
	"github.com/wihajster/wihajster-core/internal/infrastructure/mqtt"
)

// Publisher is the outbound transport slice the correlator needs.
type Publisher interface {
	PublishJSON(topic string, payload []byte) error
}

// Envelope is the command wire format on data_update/{id}.
type Envelope struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// key identifies an outstanding wait. At most one wait per key exists at
// a time.
type key struct {
	deviceID int64
	command  string
}

// Correlator matches asynchronous config/{id} replies to earlier
// commands by (device id, command name).
//
// Resolution happens on the message dispatch path, so delivery into a
// waiter is a buffered channel send that can never block the router.
type Correlator struct {
	pub    Publisher
	topics mqtt.Topics
	log    *logging.Logger

	mu      sync.Mutex
	pending map[key]chan map[string]any
	closed  bool
}

// NewCorrelator creates a correlator publishing through pub. If log is
// nil the default logger is used.
func NewCorrelator(pub Publisher, log *logging.Logger) *Correlator {
	if log == nil {
		log = logging.Default()
	}
	return &Correlator{
		pub:     pub,
		log:     log,
		pending: make(map[key]chan map[string]any),
	}
}

// Publish sends a fire-and-forget command. Success means the local send
// was accepted, never that the device received anything.
func (c *Correlator) Publish(deviceID int64, name string, params map[string]any) error {
	body, err := json.Marshal(Envelope{Command: name, Params: params})
	if err != nil {
		return fmt.Errorf("encoding command envelope: %w", err)
	}
	return c.pub.PublishJSON(c.topics.DataUpdate(deviceID), body)
}

// SendAndWait publishes a command and blocks until a correlated reply
// arrives, the timeout elapses or ctx is cancelled.
//
// A timeout returns (nil, nil): the device simply did not answer, which
// is an ordinary outcome. A second concurrent call for the same device
// and command name is rejected with ErrCommandInFlight.
func (c *Correlator) SendAndWait(ctx context.Context, deviceID int64, name string, params map[string]any, timeout time.Duration) (map[string]any, error) {
	k := key{deviceID: deviceID, command: name}
	ch := make(chan map[string]any, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := c.pending[k]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s for device %d", ErrCommandInFlight, name, deviceID)
	}
	c.pending[k] = ch
	c.mu.Unlock()

	if err := c.Publish(deviceID, name, params); err != nil {
		c.remove(k, ch)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return reply, nil
	case <-timer.C:
		c.remove(k, ch)
		c.log.Debug("command reply timed out", "device_id", deviceID, "command", name, "timeout", timeout)
		return nil, nil
	case <-ctx.Done():
		c.remove(k, ch)
		return nil, ctx.Err()
	}
}

// Resolve delivers a config/{id} reply to the waiter for its command
// name, if one exists. The entry is removed before delivery, so a
// duplicate reply finds nothing and reports false. Replies without a
// command field or without a waiter are dropped.
func (c *Correlator) Resolve(deviceID int64, payload map[string]any) bool {
	name, _ := payload["command"].(string)
	if name == "" {
		c.log.Warn("dropping reply without command field", "device_id", deviceID)
		return false
	}

	k := key{deviceID: deviceID, command: name}

	c.mu.Lock()
	ch, ok := c.pending[k]
	if ok {
		delete(c.pending, k)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Debug("dropping uncorrelated reply", "device_id", deviceID, "command", name)
		return false
	}

	ch <- payload
	return true
}

// Close rejects future waits and releases every outstanding waiter with
// ErrClosed. Used on process shutdown so no wait outlives the transport.
func (c *Correlator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for k, ch := range c.pending {
		close(ch)
		delete(c.pending, k)
	}
}

// remove clears the wait entry, but only if it still belongs to this
// call. A resolve or a successor wait may have replaced it meanwhile.
func (c *Correlator) remove(k key, ch chan map[string]any) {
	c.mu.Lock()
	if cur, ok := c.pending[k]; ok && cur == ch {
		delete(c.pending, k)
	}
	c.mu.Unlock()
}
