// Package device holds the thermostat model shared by the coordinator,
// the MQTT bridge and the HTTP API.
//
// The central type is Snapshot: an immutable view of every thermostat
// on the account plus the account summary, replaced wholesale on each
// successful coordinator refresh. Consumers must treat a Snapshot as
// read-only; Clone produces an independent copy where mutation is
// needed.
//
// The package also provides SQLite persistence: a device repository
// recording every thermostat the bridge has ever seen, and a state
// history log of observed changes.
package device
