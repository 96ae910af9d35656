package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wihajster/wihajster-core/internal/command"
)

// CommandRequest is the body for both command endpoints.
type CommandRequest struct {
	Command    string         `json:"command"`
	Params     map[string]any `json:"params"`
	TimeoutSec int            `json:"timeout_sec"`
}

// CommandResponse reports a command's outcome. For synchronous sends,
// Success false with no error means the device did not answer in time.
type CommandResponse struct {
	Success  bool           `json:"success"`
	Response map[string]any `json:"response,omitempty"`
}

// handleSendCommand publishes a fire-and-forget command.
func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	id := deviceID(w, r)
	if id == 0 {
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	if err := s.commands.Publish(id, req.Command, req.Params); err != nil {
		s.logger.Warn("command publish failed", "device_id", id, "command", req.Command, "error", err)
		writeInternalError(w, "publish failed")
		return
	}
	writeJSON(w, http.StatusAccepted, CommandResponse{Success: true})
}

// handleSendCommandSync publishes a command and waits for the
// correlated reply. A silent device is a 200 with success false, not
// an error.
func (s *Server) handleSendCommandSync(w http.ResponseWriter, r *http.Request) {
	id := deviceID(w, r)
	if id == 0 {
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	timeout := s.commandTimeout
	if req.TimeoutSec > 0 {
		timeout = time.Duration(req.TimeoutSec) * time.Second
	}

	reply, err := s.commands.SendAndWait(r.Context(), id, req.Command, req.Params, timeout)
	if err != nil {
		if errors.Is(err, command.ErrCommandInFlight) {
			writeConflict(w, "command already in flight for this device")
			return
		}
		s.logger.Warn("synchronous command failed", "device_id", id, "command", req.Command, "error", err)
		writeInternalError(w, "command failed")
		return
	}
	if reply == nil {
		writeJSON(w, http.StatusOK, CommandResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Success: true, Response: reply})
}
