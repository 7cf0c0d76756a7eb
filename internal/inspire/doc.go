// Package inspire implements the client for the Inspire Home Automation
// cloud API (XML over HTTP, api1_4).
//
// The vendor API is session-keyed: a connect call exchanges the account
// credentials for a session key, and every subsequent call carries that
// key. Keys expire server-side without warning, so authenticated calls
// transparently reconnect once and retry when the vendor reports an
// invalid key.
//
// The vendor throttles accounts that call faster than once per second.
// Every request, including the reconnect, passes through a shared
// RateLimiter that enforces the minimum spacing. Parameter validation
// happens before the limiter: a call that fails validation never
// consumes a rate-limit slot and never touches the network.
//
// # Errors
//
// All failures map onto the package sentinels (ErrAuthentication,
// ErrConnection, ErrValidation, ErrDeviceOffline, ErrDeviceNotFound,
// ErrRateLimited, ErrBadResponse) and are checked with errors.Is.
// Error strings never contain credentials or session keys.
package inspire
