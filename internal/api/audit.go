package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/audit"
)

// handleListAuditLogs pages through the audit trail. Filters: action
// (an event type such as socket.command), entity_type, entity_id, limit
// (the repository clamps it) and offset.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}
	for field, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		n, ok := queryInt(q, field)
		if !ok {
			writeBadRequest(w, "invalid query parameter", field, apperr.ReasonInvalidValue)
			return
		}
		*dst = n
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}
	writeOK(w, http.StatusOK, result)
}

// queryInt reads a non-negative integer parameter; absent means zero.
func queryInt(q url.Values, name string) (int, bool) {
	v := q.Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil && n >= 0
}
