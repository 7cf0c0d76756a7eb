package api

import "net/http"

// systemStatusResponse is the response body for GET /system/status.
type systemStatusResponse struct {
	Version             string `json:"version"`
	Healthy             bool   `json:"healthy"`
	LastSuccess         string `json:"last_success,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	DeviceCount         int    `json:"device_count"`
	WebSocketClients    int    `json:"websocket_clients"`
}

// handleSystemStatus reports coordinator health and poll statistics.
func (s *Server) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.coordinator.Status()

	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, systemStatusResponse{
		Version:             s.version,
		Healthy:             status.Healthy,
		LastSuccess:         status.LastSuccess,
		ConsecutiveFailures: status.ConsecutiveFailures,
		DeviceCount:         status.DeviceCount,
		WebSocketClients:    clients,
	})
}

// handleRequestRefresh asks the coordinator for an early poll. The
// refresh happens asynchronously; collapsed if one is already pending.
func (s *Server) handleRequestRefresh(w http.ResponseWriter, _ *http.Request) {
	s.coordinator.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}
