package hass

import (
	"encoding/json"

	"github.com/nerrad567/inspire-bridge/internal/device"
)

// statePayload is the per-thermostat state document. It carries both
// the canonical mode and the Home Assistant climate projection so the
// discovery templates stay trivial.
type statePayload struct {
	Name               string   `json:"name"`
	CurrentTemperature *float64 `json:"current_temperature,omitempty"`
	TargetTemperature  *float64 `json:"target_temperature,omitempty"`
	Mode               string   `json:"mode"`
	HAMode             string   `json:"ha_mode"`
	Preset             string   `json:"preset"`
	BoilerOn           *bool    `json:"boiler_on,omitempty"`
	Battery            string   `json:"battery,omitempty"`
	Connected          bool     `json:"connected"`
}

func buildStatePayload(t *device.Thermostat) ([]byte, error) {
	return json.Marshal(statePayload{
		Name:               t.Name,
		CurrentTemperature: t.CurrentTemperature,
		TargetTemperature:  t.TargetTemperature,
		Mode:               t.Mode,
		HAMode:             haMode(t.Mode),
		Preset:             presetOf(t.Mode),
		BoilerOn:           t.BoilerOn,
		Battery:            t.Battery,
		Connected:          t.Connected,
	})
}

// haMode projects a canonical function name onto Home Assistant's
// climate mode vocabulary. Boost presents as heat with the boost
// preset active.
func haMode(mode string) string {
	switch mode {
	case "off":
		return "off"
	case "manual", "boost":
		return "heat"
	case "program1", "program2", "both":
		return "auto"
	default:
		return "auto"
	}
}

func presetOf(mode string) string {
	if mode == "boost" {
		return "boost"
	}
	return "none"
}

// publishSummary publishes the flattened account summary as one JSON
// document and makes sure each summary key has a discovery sensor.
func (b *Bridge) publishSummary(summary map[string]string) {
	if len(summary) == 0 {
		return
	}

	b.ensureSummaryDiscovery(summary)

	payload, err := json.Marshal(summary)
	if err != nil {
		b.logger.Warn("failed to build summary payload", "error", err)
		return
	}

	if err := b.mqtt.Publish(b.topics.AccountSummary(), payload, stateQoS, true); err != nil {
		b.logger.Warn("failed to publish account summary", "error", err)
	}
}
