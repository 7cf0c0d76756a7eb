package influxdb

import "errors"

// Sentinel errors for the telemetry client. Check with errors.Is().
var (
	// ErrNotConnected indicates the client has no InfluxDB connection.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a point could not be written. Most write
	// failures surface asynchronously through the error callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates the influxdb section is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
