package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/inspire-bridge/internal/service"
)

// actorFrom builds the audit actor for an authenticated API request.
func actorFrom(r *http.Request) service.Actor {
	actor := service.Actor{Source: "api"}
	if claims := claimsFrom(r.Context()); claims != nil {
		actor.UserID = claims.Subject
	}
	return actor
}

// commandDeviceID extracts and bounds the device id path parameter.
// Returns "" after writing a 400 when invalid.
func commandDeviceID(w http.ResponseWriter, r *http.Request) string {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return ""
	}
	return deviceID
}

// writeCommandAccepted reports a successfully dispatched command. The
// refreshed device state arrives asynchronously via polling and the
// WebSocket stream.
func writeCommandAccepted(w http.ResponseWriter, deviceID, command string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "sent",
		"device_id": deviceID,
		"command":   command,
	})
}

// handleSetTemperature sets the manual target temperature.
func (s *Server) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	deviceID := commandDeviceID(w, r)
	if deviceID == "" {
		return
	}

	var req struct {
		Temperature float64 `json:"temperature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.commands.SetTemperature(r.Context(), actorFrom(r), deviceID, req.Temperature); err != nil {
		writeCommandError(w, err)
		return
	}
	writeCommandAccepted(w, deviceID, "set_temperature")
}

// handleSetMode sets the thermostat function.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	deviceID := commandDeviceID(w, r)
	if deviceID == "" {
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.commands.SetMode(r.Context(), actorFrom(r), deviceID, req.Mode); err != nil {
		writeCommandError(w, err)
		return
	}
	writeCommandAccepted(w, deviceID, "set_mode")
}

// handleScheduleStart schedules a one-off start time.
func (s *Server) handleScheduleStart(w http.ResponseWriter, r *http.Request) {
	deviceID := commandDeviceID(w, r)
	if deviceID == "" {
		return
	}

	var req struct {
		At string `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	at, err := time.Parse(time.RFC3339, req.At)
	if err != nil {
		writeBadRequest(w, "at must be an RFC 3339 timestamp")
		return
	}

	if err := s.commands.ScheduleStart(r.Context(), actorFrom(r), deviceID, at); err != nil {
		writeCommandError(w, err)
		return
	}
	writeCommandAccepted(w, deviceID, "schedule_start")
}

// handleCancelScheduledStart cancels a scheduled start. Idempotent.
func (s *Server) handleCancelScheduledStart(w http.ResponseWriter, r *http.Request) {
	deviceID := commandDeviceID(w, r)
	if deviceID == "" {
		return
	}

	if err := s.commands.CancelScheduledStart(r.Context(), actorFrom(r), deviceID); err != nil {
		writeCommandError(w, err)
		return
	}
	writeCommandAccepted(w, deviceID, "cancel_scheduled_start")
}

// handleAdvanceProgram advances the thermostat to its next program period.
func (s *Server) handleAdvanceProgram(w http.ResponseWriter, r *http.Request) {
	deviceID := commandDeviceID(w, r)
	if deviceID == "" {
		return
	}

	if err := s.commands.AdvanceProgram(r.Context(), actorFrom(r), deviceID); err != nil {
		writeCommandError(w, err)
		return
	}
	writeCommandAccepted(w, deviceID, "advance_program")
}

// handleSyncTime pushes the bridge host clock to the thermostat.
func (s *Server) handleSyncTime(w http.ResponseWriter, r *http.Request) {
	deviceID := commandDeviceID(w, r)
	if deviceID == "" {
		return
	}

	if err := s.commands.SyncTime(r.Context(), actorFrom(r), deviceID); err != nil {
		writeCommandError(w, err)
		return
	}
	writeCommandAccepted(w, deviceID, "sync_time")
}

// handleSetProgramSchedule updates one period of a program schedule.
func (s *Server) handleSetProgramSchedule(w http.ResponseWriter, r *http.Request) {
	deviceID := commandDeviceID(w, r)
	if deviceID == "" {
		return
	}

	var req struct {
		Program     int     `json:"program"`
		Day         int     `json:"day"`
		Period      int     `json:"period"`
		Start       string  `json:"start"`
		Temperature float64 `json:"temperature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.commands.SetProgramSchedule(r.Context(), actorFrom(r), deviceID,
		req.Program, req.Day, req.Period, req.Start, req.Temperature)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeCommandAccepted(w, deviceID, "set_program_schedule")
}

// handleSetProgramType changes the thermostat's program type.
func (s *Server) handleSetProgramType(w http.ResponseWriter, r *http.Request) {
	deviceID := commandDeviceID(w, r)
	if deviceID == "" {
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.commands.SetProgramType(r.Context(), actorFrom(r), deviceID, req.Type); err != nil {
		writeCommandError(w, err)
		return
	}
	writeCommandAccepted(w, deviceID, "set_program_type")
}
