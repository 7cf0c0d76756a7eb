// Package service implements the bridge's write operations against the
// Inspire cloud.
//
// Every operation follows the same path: validate locally, resolve the
// device from the coordinator's snapshot (an unknown id fails before any
// network call), send the rate-limited vendor command, record an audit
// entry, then ask the coordinator for an early refresh so the published
// state converges quickly.
//
// Both the HTTP API and the MQTT command topics dispatch through this
// package, so the audit trail covers every write regardless of entry
// point.
package service
