package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/inspire-bridge/internal/audit"
)

// handleListAudit returns the command audit trail, most recent first.
// Filters: device_id, command, status, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command audit unavailable")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		DeviceID: q.Get("device_id"),
		Command:  q.Get("command"),
		Status:   q.Get("status"),
	}

	for _, param := range []string{filter.DeviceID, filter.Command, filter.Status} {
		if len(param) > maxQueryParamLen {
			writeBadRequest(w, "filter parameter too long")
			return
		}
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		writeInternalError(w, "failed to load audit entries")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
