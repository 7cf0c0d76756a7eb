package mqtt

import "fmt"

// Topic prefixes for the bridge's MQTT surface.
//
// Bridge topics use the flat scheme: inspire/{category}/{device_id}[/{detail}]
// Home Assistant discovery topics live under the configurable discovery
// prefix (default "homeassistant") and follow HA's convention:
// {prefix}/{component}/{node_id}/{object_id}/config
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "inspire"

	// TopicPrefixBridge is the base for bridge lifecycle topics.
	TopicPrefixBridge = "inspire/bridge"

	// defaultDiscoveryPrefix is used when no discovery prefix is configured.
	defaultDiscoveryPrefix = "homeassistant"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("12345")
//	// Returns: "inspire/state/12345"
type Topics struct{}

// DeviceState returns the topic for a thermostat's state document.
//
// Example: inspire/state/12345
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DeviceCommand returns the topic for a command to a thermostat.
// Command is one of: set_temperature, set_mode.
//
// Example: inspire/command/12345/set_temperature
func (Topics) DeviceCommand(deviceID, command string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, deviceID, command)
}

// AccountStatus returns the topic for vendor account availability
// (online/offline, driven by the coordinator's failure threshold).
//
// Example: inspire/account/status
func (Topics) AccountStatus() string {
	return fmt.Sprintf("%s/account/status", TopicPrefix)
}

// AccountSummary returns the topic for the flattened account summary.
//
// Example: inspire/account/summary
func (Topics) AccountSummary() string {
	return fmt.Sprintf("%s/account/summary", TopicPrefix)
}

// BridgeStatus returns the bridge availability topic (online/offline,
// also used as the LWT target).
//
// Example: inspire/bridge/status
func (Topics) BridgeStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixBridge)
}

// BridgeHealth returns the topic for periodic bridge health documents.
//
// Example: inspire/bridge/health
func (Topics) BridgeHealth() string {
	return fmt.Sprintf("%s/health", TopicPrefixBridge)
}

// AllDeviceStates returns a pattern matching every thermostat state topic.
//
// Pattern: inspire/state/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllDeviceCommands returns a pattern matching every device command topic.
//
// Pattern: inspire/command/+/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+/+", TopicPrefix)
}

// AllTopics returns a pattern matching all bridge topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: inspire/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// DiscoveryConfig returns a Home Assistant discovery config topic.
// An empty prefix falls back to the HA default.
//
// Example: homeassistant/climate/inspire_12345/thermostat/config
func (Topics) DiscoveryConfig(prefix, component, deviceID, objectID string) string {
	if prefix == "" {
		prefix = defaultDiscoveryPrefix
	}
	return fmt.Sprintf("%s/%s/inspire_%s/%s/config", prefix, component, deviceID, objectID)
}
