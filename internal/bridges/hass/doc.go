// Package hass bridges the coordinator's thermostat snapshots onto MQTT
// in a shape Home Assistant consumes natively.
//
// It handles:
//   - Publishing retained per-device state documents on snapshot updates
//   - Home Assistant MQTT discovery (climate entity plus temperature,
//     battery, boiler and account summary sensors)
//   - Receiving setpoint and mode commands from command topics and
//     dispatching them through the service layer
//   - Bridge availability (retained online/offline) and periodic health
//
// State documents are only republished when the device's observable
// state actually changed, so a quiet account produces almost no broker
// traffic between discovery and the occasional temperature drift.
package hass
