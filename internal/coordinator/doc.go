// Package coordinator polls the Inspire cloud and maintains the bridge's
// view of every thermostat on the account.
//
// A single goroutine owns the poll cycle: it fetches the device list once,
// then on every tick fetches per-device information and the account summary
// and replaces the published snapshot wholesale. Consumers never see a
// half-updated snapshot; Snapshot() returns an independent copy and
// subscribers receive their own clone.
//
// Refreshes requested via RequestRefresh (after a command, for example)
// collapse into the running cycle: at most one refresh is ever in flight,
// and any number of pending requests trigger exactly one extra cycle.
//
// The vendor cloud drops out routinely, so a single failed cycle keeps the
// previous snapshot. Only after a configured number of consecutive failures
// is the snapshot republished with Available set to false; the first
// successful cycle resets the counter and restores availability.
package coordinator
