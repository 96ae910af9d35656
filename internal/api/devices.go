package api

import (
	"errors"
	"net/http"

	"github.com/wihajster/wihajster-core/internal/ingest"
)

// handleGetPresence returns the device's last announced presence.
// Devices that have not announced since startup are 404; presence is
// in-memory only and rebuilt from traffic.
func (s *Server) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	id := deviceID(w, r)
	if id == 0 {
		return
	}

	state, ok := s.presence.Get(id)
	if !ok {
		writeNotFound(w, "no presence recorded")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleGetLatestTelemetry returns the device's most recent health
// snapshot.
func (s *Server) handleGetLatestTelemetry(w http.ResponseWriter, r *http.Request) {
	id := deviceID(w, r)
	if id == 0 {
		return
	}

	tel, err := s.telemetry.LatestTelemetry(r.Context(), id)
	if err != nil {
		if errors.Is(err, ingest.ErrNoTelemetry) {
			writeNotFound(w, "no telemetry recorded")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tel)
}
