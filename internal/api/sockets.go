package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/socket"
)

// handleListSockets returns every registered socket in insertion order.
func (s *Server) handleListSockets(w http.ResponseWriter, r *http.Request) {
	sockets, err := s.registry.ListSockets(r.Context())
	if err != nil {
		s.logger.Error("list sockets failed", "error", err)
		writeAppError(w, err)
		return
	}
	if sockets == nil {
		sockets = []socket.Socket{}
	}
	writeOK(w, http.StatusOK, sockets)
}

// handleGetSocket returns one socket. The {ref} segment is an id when it
// parses as an integer and a name otherwise.
func (s *Server) handleGetSocket(w http.ResponseWriter, r *http.Request) {
	ref := socket.ParseRef(chi.URLParam(r, "ref"))
	sock, err := s.registry.Resolve(r.Context(), ref)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeOK(w, http.StatusOK, []socket.Socket{*sock})
}

// handleCreateSocket registers a socket. Every invalid field is reported
// in one INVALID_REQUEST.
func (s *Server) handleCreateSocket(w http.ResponseWriter, r *http.Request) {
	var c socket.Candidate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeBadRequest(w, "invalid JSON body", "body", apperr.ReasonInvalidValue)
		return
	}

	created, err := s.registry.AddSocket(r.Context(), c)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			s.logger.Error("create socket failed", "error", err)
		}
		writeAppError(w, err)
		return
	}

	writeOK(w, http.StatusCreated, []socket.Socket{*created})
}

// handleDeleteSocket removes the socket named by socket_id or socket_name
// in the body. An id that matches nothing is NOT_FOUND.
func (s *Server) handleDeleteSocket(w http.ResponseWriter, r *http.Request) {
	var ref socket.Ref
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		writeBadRequest(w, "invalid JSON body", "body", apperr.ReasonInvalidValue)
		return
	}

	target, err := s.registry.Resolve(r.Context(), ref)
	if err != nil {
		writeAppError(w, err)
		return
	}
	deleted, err := s.registry.DeleteSocket(r.Context(), target.ID)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			s.logger.Error("delete socket failed", "socket_id", target.ID, "error", err)
		}
		writeAppError(w, err)
		return
	}

	writeOK(w, http.StatusOK, []socket.Socket{*deleted})
}
