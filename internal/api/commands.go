package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/dispatch"
	"github.com/nerrad567/rfsocket-core/internal/socket"
)

// commandRequest is the request body for POST /command.
type commandRequest struct {
	socket.Ref
	OnOff string `json:"on_off"`
}

// handleCommand switches one socket on or off. The response is sent after
// the transmitter has finished; a failed transmission is SOCKET_ERROR.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body", "body", apperr.ReasonInvalidValue)
		return
	}

	on, err := dispatch.ParseState(req.OnOff)
	if err != nil {
		writeAppError(w, err)
		return
	}

	out, err := s.dispatcher.SetSocketState(r.Context(), req.Ref, on)
	if err != nil {
		s.logCommandError(r, err)
		writeAppError(w, err)
		return
	}
	writeOK(w, http.StatusOK, []dispatch.Outcome{out})
}

// handleAllOff transmits the registry-wide all-off code.
func (s *Server) handleAllOff(w http.ResponseWriter, r *http.Request) {
	out, err := s.dispatcher.AllOff(r.Context())
	if err != nil {
		s.logCommandError(r, err)
		writeAppError(w, err)
		return
	}
	writeOK(w, http.StatusOK, []dispatch.Outcome{out})
}

// logCommandError logs failures the dispatcher has not already reported.
func (s *Server) logCommandError(r *http.Request, err error) {
	if _, ok := apperr.As(err); ok {
		return
	}
	s.logger.Error("command failed",
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
}
