package router

import (
	"context"
	"sync"

	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
	"github.com/wihajster/wihajster-core/internal/infrastructure/mqtt"
)

type message struct {
	topic   string
	payload []byte
}

// Dispatcher spreads inbound messages over a fixed set of shard workers
// keyed by device id, keeping per-device arrival order while unrelated
// devices proceed in parallel.
type Dispatcher struct {
	router *Router
	log    *logging.Logger
	queues []chan message

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher with the given shard and queue
// sizes. Values below one are clamped to one.
func NewDispatcher(router *Router, shards, queueSize int, log *logging.Logger) *Dispatcher {
	if shards < 1 {
		shards = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if log == nil {
		log = logging.Default()
	}

	queues := make([]chan message, shards)
	for i := range queues {
		queues[i] = make(chan message, queueSize)
	}
	return &Dispatcher{router: router, log: log, queues: queues}
}

// Start launches one worker goroutine per shard. Workers run until
// their queue is closed by Stop, draining what was already enqueued
// first; ctx is only passed through to the handlers. Cancelling ctx
// without calling Stop does not release the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, q := range d.queues {
		d.wg.Add(1)
		go func(q chan message) {
			defer d.wg.Done()
			for msg := range q {
				d.router.Route(ctx, msg.topic, msg.payload)
			}
		}(q)
	}
}

// HandleMessage enqueues one inbound message onto its device's shard.
// It satisfies the transport's message handler contract and never
// blocks the delivery loop: a full shard drops the message with a
// warning.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) error {
	_, deviceID, err := mqtt.SplitDeviceTopic(topic)
	if err != nil {
		d.log.Warn("dropping unroutable message", "topic", topic, "error", err)
		return nil
	}

	shard := int(deviceID % int64(len(d.queues)))
	if shard < 0 {
		shard += len(d.queues)
	}

	// The payload slice is owned by the transport for the duration of
	// the callback only.
	body := make([]byte, len(payload))
	copy(body, payload)

	select {
	case d.queues[shard] <- message{topic: topic, payload: body}:
	default:
		d.log.Warn("shard queue full, dropping message", "topic", topic, "shard", shard)
	}
	return nil
}

// Stop closes the shard queues and waits for the workers to drain.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		for _, q := range d.queues {
			close(q)
		}
	})
	d.wg.Wait()
}
