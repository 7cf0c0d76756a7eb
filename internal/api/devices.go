package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// maxQueryParamLen bounds path and query parameters that end up in
	// SQL filters.
	maxQueryParamLen = 64
)

// deviceListResponse is the response body for GET /devices.
type deviceListResponse struct {
	Devices   any    `json:"devices"`
	Count     int    `json:"count"`
	Available bool   `json:"available"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// handleListDevices returns every thermostat from the current snapshot.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snap := s.coordinator.Snapshot()

	updated := ""
	if !snap.UpdatedAt.IsZero() {
		updated = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, deviceListResponse{
		Devices:   snap.Thermostats,
		Count:     len(snap.Thermostats),
		Available: snap.Available,
		UpdatedAt: updated,
	})
}

// handleGetDevice returns one thermostat from the current snapshot.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	snap := s.coordinator.Snapshot()
	t := snap.Find(deviceID)
	if t == nil {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device":    t,
		"available": snap.Available,
	})
}

// handleGetDeviceHistory returns recent state history for a device,
// newest first.
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	snap := s.coordinator.Snapshot()
	if snap.Find(deviceID) == nil {
		writeNotFound(w, "device not found")
		return
	}

	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "state history unavailable")
		return
	}

	entries, err := s.history.GetHistory(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("history query failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to load device history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"entries":   entries,
		"count":     len(entries),
	})
}

// parseHistoryLimit parses and clamps the limit query parameter.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit, nil
}
