// Package api provides the HTTP REST API and WebSocket server for the
// Inspire bridge.
//
// It exposes the thermostat snapshot, the vendor write operations, state
// history, the command audit trail and a WebSocket state stream to local
// clients (dashboards, scripts, the admin UI).
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Reads are served from the coordinator's in-memory snapshot and never
// touch the vendor cloud. Writes go through the service layer, which
// validates, rate-limits, audits and then asks the coordinator for an
// early refresh.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
