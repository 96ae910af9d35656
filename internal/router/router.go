package router

import (
	"context"

	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
	"github.com/wihajster/wihajster-core/internal/infrastructure/mqtt"
)

// Handler processes one classified message for one device.
type Handler func(ctx context.Context, deviceID int64, payload []byte) error

// Router maps topic prefixes to handlers.
type Router struct {
	log      *logging.Logger
	handlers map[string]Handler
}

// New creates an empty router. If log is nil the default logger is
// used.
func New(log *logging.Logger) *Router {
	if log == nil {
		log = logging.Default()
	}
	return &Router{
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a topic prefix (e.g. "settings_report").
// Later registrations for the same prefix replace earlier ones.
func (r *Router) Register(prefix string, h Handler) {
	r.handlers[prefix] = h
}

// Route classifies one message and runs its handler synchronously.
// Unknown prefixes, unparseable device ids and handler failures are
// logged and swallowed; one bad message must never stop the flow.
func (r *Router) Route(ctx context.Context, topic string, payload []byte) {
	prefix, deviceID, err := mqtt.SplitDeviceTopic(topic)
	if err != nil {
		r.log.Warn("dropping unroutable message", "topic", topic, "error", err)
		return
	}

	handler, ok := r.handlers[prefix]
	if !ok {
		r.log.Warn("dropping message for unknown topic family", "topic", topic)
		return
	}

	if err := handler(ctx, deviceID, payload); err != nil {
		r.log.Warn("message handler failed", "topic", topic, "device_id", deviceID, "error", err)
	}
}
