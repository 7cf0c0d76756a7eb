package hass

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/inspire-bridge/internal/device"
)

// Thermostat setpoint limits enforced by the vendor, mirrored into the
// discovery config so Home Assistant's UI rejects the same range.
const (
	minSetpoint  = 10.0
	maxSetpoint  = 30.0
	setpointStep = 0.5
)

const manufacturer = "Inspire Home Automation"

// discoveryDevice is Home Assistant's device registry block, shared by
// every entity of one thermostat so they group under a single device.
type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model,omitempty"`
}

// discoveryAvailability is one entry of an entity's availability list.
type discoveryAvailability struct {
	Topic               string `json:"topic"`
	ValueTemplate       string `json:"value_template,omitempty"`
	PayloadAvailable    string `json:"payload_available,omitempty"`
	PayloadNotAvailable string `json:"payload_not_available,omitempty"`
}

// climateConfig is the MQTT climate discovery document.
type climateConfig struct {
	Name                     string                  `json:"name"`
	UniqueID                 string                  `json:"unique_id"`
	Modes                    []string                `json:"modes"`
	PresetModes              []string                `json:"preset_modes"`
	CurrentTemperatureTopic  string                  `json:"current_temperature_topic"`
	CurrentTemperatureTmpl   string                  `json:"current_temperature_template"`
	TemperatureStateTopic    string                  `json:"temperature_state_topic"`
	TemperatureStateTemplate string                  `json:"temperature_state_template"`
	TemperatureCommandTopic  string                  `json:"temperature_command_topic"`
	ModeStateTopic           string                  `json:"mode_state_topic"`
	ModeStateTemplate        string                  `json:"mode_state_template"`
	ModeCommandTopic         string                  `json:"mode_command_topic"`
	PresetModeStateTopic     string                  `json:"preset_mode_state_topic"`
	PresetModeValueTemplate  string                  `json:"preset_mode_value_template"`
	PresetModeCommandTopic   string                  `json:"preset_mode_command_topic"`
	MinTemp                  float64                 `json:"min_temp"`
	MaxTemp                  float64                 `json:"max_temp"`
	TempStep                 float64                 `json:"temp_step"`
	Availability             []discoveryAvailability `json:"availability,omitempty"`
	AvailabilityMode         string                  `json:"availability_mode,omitempty"`
	Device                   discoveryDevice         `json:"device"`
}

// sensorConfig covers sensor and binary_sensor discovery documents.
type sensorConfig struct {
	Name              string                  `json:"name"`
	UniqueID          string                  `json:"unique_id"`
	StateTopic        string                  `json:"state_topic"`
	ValueTemplate     string                  `json:"value_template"`
	DeviceClass       string                  `json:"device_class,omitempty"`
	UnitOfMeasurement string                  `json:"unit_of_measurement,omitempty"`
	PayloadOn         string                  `json:"payload_on,omitempty"`
	PayloadOff        string                  `json:"payload_off,omitempty"`
	Availability      []discoveryAvailability `json:"availability,omitempty"`
	AvailabilityMode  string                  `json:"availability_mode,omitempty"`
	Device            *discoveryDevice        `json:"device,omitempty"`
}

// ensureDiscovery publishes the discovery documents for a thermostat
// once. A failed publish leaves the device unannounced so the next
// snapshot retries.
func (b *Bridge) ensureDiscovery(t *device.Thermostat) {
	b.announcedMu.Lock()
	already := b.announced[t.ID] != nil
	b.announcedMu.Unlock()
	if already {
		return
	}

	stateTopic := b.topics.DeviceState(t.ID)
	availability := b.availability()
	dev := discoveryDevice{
		Identifiers:  []string{"inspire_" + t.ID},
		Name:         t.Name,
		Manufacturer: manufacturer,
		Model:        t.Model,
	}

	climate := climateConfig{
		Name:                     t.Name,
		UniqueID:                 fmt.Sprintf("inspire_%s_thermostat", t.ID),
		Modes:                    []string{"off", "auto", "heat"},
		PresetModes:              []string{"boost"},
		CurrentTemperatureTopic:  stateTopic,
		CurrentTemperatureTmpl:   "{{ value_json.current_temperature }}",
		TemperatureStateTopic:    stateTopic,
		TemperatureStateTemplate: "{{ value_json.target_temperature }}",
		TemperatureCommandTopic:  b.topics.DeviceCommand(t.ID, "set_temperature"),
		ModeStateTopic:           stateTopic,
		ModeStateTemplate:        "{{ value_json.ha_mode }}",
		ModeCommandTopic:         b.topics.DeviceCommand(t.ID, "set_mode"),
		PresetModeStateTopic:     stateTopic,
		PresetModeValueTemplate:  "{{ value_json.preset }}",
		PresetModeCommandTopic:   b.topics.DeviceCommand(t.ID, "set_mode"),
		MinTemp:                  minSetpoint,
		MaxTemp:                  maxSetpoint,
		TempStep:                 setpointStep,
		Availability:             availability,
		AvailabilityMode:         "all",
		Device:                   dev,
	}

	entities := map[string]any{
		b.topics.DiscoveryConfig(b.discoveryPrefix, "climate", t.ID, "thermostat"): climate,
		b.topics.DiscoveryConfig(b.discoveryPrefix, "sensor", t.ID, "temperature"): sensorConfig{
			Name:              t.Name + " Temperature",
			UniqueID:          fmt.Sprintf("inspire_%s_temperature", t.ID),
			StateTopic:        stateTopic,
			ValueTemplate:     "{{ value_json.current_temperature }}",
			DeviceClass:       "temperature",
			UnitOfMeasurement: "°C",
			Availability:      availability,
			AvailabilityMode:  "all",
			Device:            &dev,
		},
		b.topics.DiscoveryConfig(b.discoveryPrefix, "sensor", t.ID, "battery"): sensorConfig{
			// Vendor reports "OK", "Low" or a voltage string, so no
			// battery device class and no unit.
			Name:             t.Name + " Battery",
			UniqueID:         fmt.Sprintf("inspire_%s_battery", t.ID),
			StateTopic:       stateTopic,
			ValueTemplate:    "{{ value_json.battery }}",
			Availability:     availability,
			AvailabilityMode: "all",
			Device:           &dev,
		},
		b.topics.DiscoveryConfig(b.discoveryPrefix, "binary_sensor", t.ID, "boiler"): sensorConfig{
			Name:             t.Name + " Boiler",
			UniqueID:         fmt.Sprintf("inspire_%s_boiler", t.ID),
			StateTopic:       stateTopic,
			ValueTemplate:    "{% if value_json.boiler_on %}ON{% else %}OFF{% endif %}",
			DeviceClass:      "running",
			PayloadOn:        "ON",
			PayloadOff:       "OFF",
			Availability:     availability,
			AvailabilityMode: "all",
			Device:           &dev,
		},
	}

	for topic, cfg := range entities {
		if err := b.publishDiscovery(topic, cfg); err != nil {
			b.logger.Warn("failed to publish discovery",
				"device_id", t.ID,
				"topic", topic,
				"error", err)
			return
		}
	}

	b.announcedMu.Lock()
	b.announced[t.ID] = map[string]bool{"entities": true}
	b.announcedMu.Unlock()

	b.logger.Info("announced device", "device_id", t.ID, "name", t.Name)
}

// ensureSummaryDiscovery announces one sensor per account summary key,
// grouped under a synthetic "account" device.
func (b *Bridge) ensureSummaryDiscovery(summary map[string]string) {
	b.announcedMu.Lock()
	seen := b.announced["account"]
	if seen == nil {
		seen = make(map[string]bool)
		b.announced["account"] = seen
	}
	pending := make([]string, 0, len(summary))
	for key := range summary {
		if !seen[key] {
			pending = append(pending, key)
		}
	}
	b.announcedMu.Unlock()

	if len(pending) == 0 {
		return
	}

	dev := discoveryDevice{
		Identifiers:  []string{"inspire_account"},
		Name:         "Inspire Account",
		Manufacturer: manufacturer,
	}

	for _, key := range pending {
		objectID := summaryObjectID(key)
		cfg := sensorConfig{
			Name:          "Inspire " + strings.ReplaceAll(key, "_", " "),
			UniqueID:      "inspire_account_" + objectID,
			StateTopic:    b.topics.AccountSummary(),
			ValueTemplate: fmt.Sprintf("{{ value_json['%s'] }}", key),
			Availability:  b.availability(),
			Device:        &dev,
		}

		topic := b.topics.DiscoveryConfig(b.discoveryPrefix, "sensor", "account", objectID)
		if err := b.publishDiscovery(topic, cfg); err != nil {
			b.logger.Warn("failed to publish summary discovery", "key", key, "error", err)
			continue
		}

		b.announcedMu.Lock()
		seen[key] = true
		b.announcedMu.Unlock()
	}
}

func (b *Bridge) publishDiscovery(topic string, cfg any) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal discovery config: %w", err)
	}
	return b.mqtt.Publish(topic, payload, stateQoS, true)
}

// availability returns the shared availability list: the bridge's LWT
// topic and the vendor account status, both required for an entity to
// show as available.
func (b *Bridge) availability() []discoveryAvailability {
	return []discoveryAvailability{
		{
			Topic:         b.topics.BridgeStatus(),
			ValueTemplate: "{{ value_json.status }}",
		},
		{
			Topic: b.topics.AccountStatus(),
		},
	}
}

// summaryObjectID turns a vendor summary key into an HA object id.
func summaryObjectID(key string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
