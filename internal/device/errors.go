package device

import "errors"

// Sentinel errors for thermostat persistence and lookups. Check with
// errors.Is(); the API layer maps ErrDeviceNotFound to HTTP 404.
var (
	// ErrDeviceNotFound is returned when a vendor device id is unknown.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned when a thermostat fails validation,
	// typically a missing id.
	ErrInvalidDevice = errors.New("device: invalid")
)
