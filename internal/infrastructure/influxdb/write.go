package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Temperature kinds used as tag values on the temperature measurement.
const (
	TemperatureCurrent = "current"
	TemperatureTarget  = "target"
	TemperatureProfile = "profile"
)

// WriteTemperature writes a single temperature reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Vendor device identifier (e.g., "12345")
//   - kind: Which temperature this is (TemperatureCurrent, TemperatureTarget, ...)
//   - celsius: The reading in °C
//
// Example:
//
//	client.WriteTemperature("12345", influxdb.TemperatureCurrent, 19.5)
func (c *Client) WriteTemperature(deviceID string, kind string, celsius float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"temperature",
		map[string]string{
			"device_id": deviceID,
			"kind":      kind,
		},
		map[string]interface{}{
			"celsius": celsius,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBoilerState writes the call-for-heat flag for a thermostat.
//
// Stored as an integer (0/1) so mean() over a window gives duty cycle.
func (c *Client) WriteBoilerState(deviceID string, on bool) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if on {
		value = 1
	}

	point := write.NewPoint(
		"boiler",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"on": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBatteryVoltage writes a thermostat battery voltage reading.
//
// Only units that report Battery_Voltage produce this series; units that
// report the OK/Low flag do not.
func (c *Client) WriteBatteryVoltage(deviceID string, volts float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"battery",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"volts": volts,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
