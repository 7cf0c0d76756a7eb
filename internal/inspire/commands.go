package inspire

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Wire formats for values carried in send_message calls.
const (
	dateTimeFormat = "2006-01-02 15:04"
	clockFormat    = "2006-01-02 15:04:05"
	periodFormat   = "15:04"
)

// SetTemperature sets the target temperature for a device.
//
// The temperature must lie within [MinTemperature, MaxTemperature] and
// be a multiple of TemperatureStep. Out-of-range or misaligned values
// return ErrValidation without touching the network.
func (c *Client) SetTemperature(ctx context.Context, deviceID string, temperature float64) error {
	if err := validateTemperature(temperature); err != nil {
		return err
	}
	return c.sendMessage(ctx, deviceID, "set_set_point", formatTemperature(temperature), nil)
}

// SetFunction sets the operating mode for a device.
func (c *Client) SetFunction(ctx context.Context, deviceID string, fn Function) error {
	if !fn.Valid() {
		return fmt.Errorf("%w: function %d out of range 1-6", ErrValidation, int(fn))
	}
	return c.sendMessage(ctx, deviceID, "set_function", strconv.Itoa(int(fn)), nil)
}

// ScheduleStart arranges for heating to start at the given time.
func (c *Client) ScheduleStart(ctx context.Context, deviceID string, at time.Time) error {
	if at.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrValidation)
	}
	return c.sendMessage(ctx, deviceID, "set_scheduled_start", at.Format(dateTimeFormat), nil)
}

// CancelScheduledStart cancels a pending scheduled start. Cancelling
// when nothing is scheduled is accepted by the vendor and is a no-op.
func (c *Client) CancelScheduledStart(ctx context.Context, deviceID string) error {
	return c.sendMessage(ctx, deviceID, "cancel_scheduled_start", "1", nil)
}

// AdvanceProgram toggles the advance state, switching the thermostat
// to the next programmed period early. The vendor treats repeated
// advances while already advanced as a no-op.
func (c *Client) AdvanceProgram(ctx context.Context, deviceID string) error {
	return c.sendMessage(ctx, deviceID, "set_advance", "1", nil)
}

// SyncTime sets the device clock to the given time, normally the
// bridge host's clock.
func (c *Client) SyncTime(ctx context.Context, deviceID string, now time.Time) error {
	if now.IsZero() {
		return fmt.Errorf("%w: time is required", ErrValidation)
	}
	return c.sendMessage(ctx, deviceID, "set_time", now.Format(clockFormat), nil)
}

// SetProgramSchedule rewrites one period of a heating program.
//
// Parameters:
//   - program: Program number, 1 or 2
//   - day: Day of week, 0 (Monday) through 6 (Sunday)
//   - period: Period index within the day, 0-based
//   - start: Period start time in "15:04" form
//   - temperature: Target temperature for the period
func (c *Client) SetProgramSchedule(ctx context.Context, deviceID string, program, day, period int, start string, temperature float64) error {
	if program < 1 || program > 2 {
		return fmt.Errorf("%w: program %d out of range 1-2", ErrValidation, program)
	}
	if day < 0 || day > 6 {
		return fmt.Errorf("%w: day %d out of range 0-6", ErrValidation, day)
	}
	if period < 0 {
		return fmt.Errorf("%w: period %d must not be negative", ErrValidation, period)
	}
	if _, err := time.Parse(periodFormat, start); err != nil {
		return fmt.Errorf("%w: time %q is not in HH:MM form", ErrValidation, start)
	}
	if err := validateTemperature(temperature); err != nil {
		return err
	}

	extra := url.Values{
		"program":     {strconv.Itoa(program)},
		"day":         {strconv.Itoa(day)},
		"period":      {strconv.Itoa(period)},
		"time":        {start},
		"temperature": {formatTemperature(temperature)},
	}
	return c.sendMessage(ctx, deviceID, "set_program_time", "", extra)
}

// SetProgramType changes how the device's programs repeat across the
// week (for example 24 hour, 5/2 day or 7 day).
func (c *Client) SetProgramType(ctx context.Context, deviceID, programType string) error {
	if programType == "" {
		return fmt.Errorf("%w: program type is required", ErrValidation)
	}
	return c.sendMessage(ctx, deviceID, "set_pgmtype", programType, nil)
}

// sendMessage delivers one send_message call for a device.
func (c *Client) sendMessage(ctx context.Context, deviceID, messageType, value string, extra url.Values) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrValidation)
	}

	form := url.Values{}
	for k, vs := range extra {
		form[k] = vs
	}
	form.Set("device_id", deviceID)
	form.Set("message_type", messageType)
	if value != "" {
		form.Set("value", value)
	}

	_, err := c.authedDo(ctx, http.MethodPost, "send_message", form)
	if err != nil {
		return fmt.Errorf("sending %s: %w", messageType, err)
	}

	c.logger.Debug("message sent", "device_id", deviceID, "message_type", messageType)
	return nil
}

// validateTemperature checks range and step alignment.
func validateTemperature(t float64) error {
	if t < MinTemperature || t > MaxTemperature {
		return fmt.Errorf("%w: temperature %.1f out of range %.0f-%.0f", ErrValidation, t, MinTemperature, MaxTemperature)
	}
	steps := t / TemperatureStep
	if math.Abs(steps-math.Round(steps)) > 1e-9 {
		return fmt.Errorf("%w: temperature %g is not a multiple of %g", ErrValidation, t, TemperatureStep)
	}
	return nil
}

// formatTemperature renders a temperature the way the vendor expects,
// one decimal place with no trailing zeros beyond the half degree.
func formatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'f', 1, 64)
}
