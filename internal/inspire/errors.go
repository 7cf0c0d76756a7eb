package inspire

import (
	"errors"
	"fmt"
)

// Sentinel errors for vendor API failures.
// Wrap with fmt.Errorf("...: %w", err) to add context; check with errors.Is.
var (
	// ErrAuthentication indicates the account credentials were rejected
	// or the session key could not be refreshed.
	ErrAuthentication = errors.New("inspire: authentication failed")

	// ErrConnection indicates a transport-level failure reaching the
	// vendor cloud (DNS, TCP, TLS, timeout, non-2xx response).
	ErrConnection = errors.New("inspire: connection failed")

	// ErrValidation indicates a parameter failed local validation.
	// No network request was made.
	ErrValidation = errors.New("inspire: invalid parameter")

	// ErrDeviceNotFound indicates the device id is not known, either
	// locally (not in the current snapshot) or at the vendor.
	ErrDeviceNotFound = errors.New("inspire: device not found")

	// ErrDeviceOffline indicates the gateway or thermostat is not
	// currently connected to the vendor cloud.
	ErrDeviceOffline = errors.New("inspire: device not connected")

	// ErrRateLimited indicates the vendor rejected the call for
	// exceeding the account rate limit.
	ErrRateLimited = errors.New("inspire: rate limited")

	// ErrBadResponse indicates the vendor returned something that
	// could not be parsed as a valid API response.
	ErrBadResponse = errors.New("inspire: malformed response")
)

// Vendor status codes carried in the <status><code> element.
const (
	StatusInvalidLogin        = 1
	StatusUserNotValidated    = 2
	StatusInvalidKey          = 3
	StatusGatewayNotConnected = 4
	StatusDeviceNotConnected  = 5
	StatusInvalidDeviceID     = 6
	StatusSpecifyDeviceID     = 8
	StatusRateLimit           = 11
	StatusUnitActive          = 13
	StatusMessageSent         = 14
)

// statusError maps a vendor status code onto a sentinel error.
// Codes 13 (unit active) and 14 (message sent) are success codes and
// return nil. Unknown codes also return nil; the vendor adds codes
// without notice and treating them as fatal would break polling.
func statusError(code int, message string) error {
	switch code {
	case StatusInvalidLogin, StatusUserNotValidated:
		return fmt.Errorf("%w: status %d: %s", ErrAuthentication, code, message)
	case StatusInvalidKey:
		return fmt.Errorf("%w: session key expired: %s", ErrAuthentication, message)
	case StatusGatewayNotConnected, StatusDeviceNotConnected:
		return fmt.Errorf("%w: status %d: %s", ErrDeviceOffline, code, message)
	case StatusInvalidDeviceID, StatusSpecifyDeviceID:
		return fmt.Errorf("%w: status %d: %s", ErrDeviceNotFound, code, message)
	case StatusRateLimit:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	default:
		return nil
	}
}
