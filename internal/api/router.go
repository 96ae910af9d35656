package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices/{id}", func(r chi.Router) {
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", s.handleGetSettings)
				r.Patch("/", s.handleUpdateSettings)
				r.Post("/sync", s.handleTriggerSync)
				r.Post("/pending/clear", s.handleClearPending)
			})

			r.Route("/commands", func(r chi.Router) {
				r.Post("/", s.handleSendCommand)
				r.Post("/sync", s.handleSendCommandSync)
			})

			r.Get("/presence", s.handleGetPresence)
			r.Get("/telemetry/latest", s.handleGetLatestTelemetry)
		})
	})

	return r
}

// deviceID parses the {id} route parameter. A zero return means the
// response has already been written.
func deviceID(w http.ResponseWriter, r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeBadRequest(w, "invalid device id")
		return 0
	}
	return id
}
