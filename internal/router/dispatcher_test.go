package router

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestDispatcherPreservesPerDeviceOrder(t *testing.T) {
	r := New(nil)

	var mu sync.Mutex
	seen := make(map[int64][]string)
	r.Register("sensors", func(_ context.Context, id int64, p []byte) error {
		mu.Lock()
		seen[id] = append(seen[id], string(p))
		mu.Unlock()
		return nil
	})

	d := NewDispatcher(r, 4, 64, nil)
	d.Start(context.Background())

	const perDevice = 20
	for i := 0; i < perDevice; i++ {
		for id := int64(1); id <= 8; id++ {
			topic := fmt.Sprintf("sensors/%d", id)
			if err := d.HandleMessage(topic, []byte(fmt.Sprintf("%d", i))); err != nil {
				t.Fatalf("HandleMessage() error: %v", err)
			}
		}
	}
	d.Stop()

	for id := int64(1); id <= 8; id++ {
		msgs := seen[id]
		if len(msgs) != perDevice {
			t.Fatalf("device %d received %d messages, want %d", id, len(msgs), perDevice)
		}
		for i, got := range msgs {
			if got != fmt.Sprintf("%d", i) {
				t.Fatalf("device %d message %d = %s, out of order", id, i, got)
			}
		}
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	r := New(nil)
	blocked := make(chan struct{})
	r.Register("sensors", func(_ context.Context, _ int64, _ []byte) error {
		<-blocked
		return nil
	})

	// One shard with a one-slot queue and no running worker consuming.
	d := NewDispatcher(r, 1, 1, nil)
	d.Start(context.Background())

	// First message occupies the worker, second fills the queue, third
	// must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			d.HandleMessage("sensors/1", []byte("x")) //nolint:errcheck // drop path under test
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleMessage blocked on a full queue")
	}

	close(blocked)
	d.Stop()
}

func TestDispatcherStopDrainsAfterContextCancel(t *testing.T) {
	r := New(nil)

	var mu sync.Mutex
	var calls int
	r.Register("sensors", func(_ context.Context, _ int64, _ []byte) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	// Shutdown order in the composition root cancels the context before
	// the deferred Stop runs; already-enqueued messages must still be
	// handled. Enqueue before Start so nothing is consumed early.
	d := NewDispatcher(r, 1, 8, nil)
	for i := 0; i < 5; i++ {
		if err := d.HandleMessage("sensors/1", []byte("x")); err != nil {
			t.Fatalf("HandleMessage() error: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	if calls != 5 {
		t.Errorf("handled %d messages after cancel+Stop, want 5", calls)
	}
}

func TestDispatcherDropsUnroutableBeforeQueueing(t *testing.T) {
	r := New(nil)
	var calls int
	r.Register("sensors", func(_ context.Context, _ int64, _ []byte) error {
		calls++
		return nil
	})

	d := NewDispatcher(r, 2, 8, nil)
	d.Start(context.Background())

	if err := d.HandleMessage("sensors/not-a-number", []byte("x")); err != nil {
		t.Fatalf("HandleMessage() error: %v", err)
	}
	d.Stop()

	if calls != 0 {
		t.Errorf("handler called %d times for unroutable topic", calls)
	}
}

func TestDispatcherCopiesPayload(t *testing.T) {
	r := New(nil)
	got := make(chan string, 1)
	r.Register("sensors", func(_ context.Context, _ int64, p []byte) error {
		got <- string(p)
		return nil
	})

	d := NewDispatcher(r, 1, 8, nil)
	d.Start(context.Background())

	payload := []byte("original")
	if err := d.HandleMessage("sensors/1", payload); err != nil {
		t.Fatalf("HandleMessage() error: %v", err)
	}
	// The transport reuses its buffer after the callback returns.
	copy(payload, "clobber!")

	if msg := <-got; msg != "original" {
		t.Errorf("handler saw %q, want the copied payload", msg)
	}
	d.Stop()
}
