package api

import (
	"encoding/json"
	"net/http"
)

// handleGetSettings returns the device's settings record, creating it
// with defaults on first read of a known device.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	id := deviceID(w, r)
	if id == 0 {
		return
	}

	rec, err := s.settings.GetOrCreate(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleUpdateSettings stages desired values from a partial field map.
// Delivery is decoupled; callers follow up with a sync trigger or wait
// for the device's next online transition.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := deviceID(w, r)
	if id == 0 {
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(fields) == 0 {
		writeBadRequest(w, "no fields to update")
		return
	}

	rec, err := s.settings.RequestUpdate(r.Context(), id, fields)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleTriggerSync publishes the device's full settings picture.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	id := deviceID(w, r)
	if id == 0 {
		return
	}

	if err := s.settings.TriggerSync(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleClearPending abandons every staged change for the device.
func (s *Server) handleClearPending(w http.ResponseWriter, r *http.Request) {
	id := deviceID(w, r)
	if id == 0 {
		return
	}

	rec, err := s.settings.ClearAllPending(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
