package inspire

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSetTemperature_Valid(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		if call.Action == "connect" {
			return connectOK
		}
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	if err := client.SetTemperature(context.Background(), "dev-1", 20.5); err != nil {
		t.Fatalf("SetTemperature() error = %v", err)
	}

	call := vs.lastCall()
	if got := call.Form.Get("message_type"); got != "set_set_point" {
		t.Errorf("message_type = %q, want set_set_point", got)
	}
	if got := call.Form.Get("value"); got != "20.5" {
		t.Errorf("value = %q, want 20.5", got)
	}
	if got := call.Form.Get("device_id"); got != "dev-1" {
		t.Errorf("device_id = %q, want dev-1", got)
	}
}

func TestSetTemperature_ValidationSkipsNetwork(t *testing.T) {
	tests := []struct {
		name string
		temp float64
	}{
		{"below range", 9.5},
		{"above range", 30.5},
		{"not a half degree", 20.3},
		{"quarter degree", 20.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := newVendorServer(t, func(call vendorCall) string {
				return sentOK
			})
			client := newTestClient(t, vs.URL)

			err := client.SetTemperature(context.Background(), "dev-1", tt.temp)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("SetTemperature(%v) error = %v, want ErrValidation", tt.temp, err)
			}
			if vs.callCount() != 0 {
				t.Errorf("server saw %d calls, want 0", vs.callCount())
			}
		})
	}
}

func TestSetTemperature_Boundaries(t *testing.T) {
	for _, temp := range []float64{10.0, 30.0, 19.5} {
		vs := newVendorServer(t, func(call vendorCall) string {
			if call.Action == "connect" {
				return connectOK
			}
			return sentOK
		})
		client := newTestClient(t, vs.URL)

		if err := client.SetTemperature(context.Background(), "dev-1", temp); err != nil {
			t.Errorf("SetTemperature(%v) error = %v", temp, err)
		}
	}
}

func TestSetFunction(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		if call.Action == "connect" {
			return connectOK
		}
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	if err := client.SetFunction(context.Background(), "dev-1", FunctionBoost); err != nil {
		t.Fatalf("SetFunction() error = %v", err)
	}

	call := vs.lastCall()
	if got := call.Form.Get("message_type"); got != "set_function" {
		t.Errorf("message_type = %q, want set_function", got)
	}
	if got := call.Form.Get("value"); got != "6" {
		t.Errorf("value = %q, want 6", got)
	}
}

func TestSetFunction_Invalid(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	for _, fn := range []Function{0, 7, -1} {
		if err := client.SetFunction(context.Background(), "dev-1", fn); !errors.Is(err, ErrValidation) {
			t.Errorf("SetFunction(%d) error = %v, want ErrValidation", int(fn), err)
		}
	}
	if vs.callCount() != 0 {
		t.Errorf("server saw %d calls, want 0", vs.callCount())
	}
}

func TestScheduleStart(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		if call.Action == "connect" {
			return connectOK
		}
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	at := time.Date(2026, 3, 14, 6, 30, 0, 0, time.UTC)
	if err := client.ScheduleStart(context.Background(), "dev-1", at); err != nil {
		t.Fatalf("ScheduleStart() error = %v", err)
	}

	call := vs.lastCall()
	if got := call.Form.Get("message_type"); got != "set_scheduled_start" {
		t.Errorf("message_type = %q, want set_scheduled_start", got)
	}
	if got := call.Form.Get("value"); got != "2026-03-14 06:30" {
		t.Errorf("value = %q, want 2026-03-14 06:30", got)
	}
}

func TestScheduleStart_ZeroTime(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	if err := client.ScheduleStart(context.Background(), "dev-1", time.Time{}); !errors.Is(err, ErrValidation) {
		t.Errorf("ScheduleStart(zero) error = %v, want ErrValidation", err)
	}
	if vs.callCount() != 0 {
		t.Errorf("server saw %d calls, want 0", vs.callCount())
	}
}

func TestCancelScheduledStart_Idempotent(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		if call.Action == "connect" {
			return connectOK
		}
		// The vendor acknowledges a cancel even when nothing is scheduled.
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	for i := 0; i < 2; i++ {
		if err := client.CancelScheduledStart(context.Background(), "dev-1"); err != nil {
			t.Fatalf("CancelScheduledStart() attempt %d error = %v", i+1, err)
		}
	}

	if got := vs.lastCall().Form.Get("message_type"); got != "cancel_scheduled_start" {
		t.Errorf("message_type = %q, want cancel_scheduled_start", got)
	}
}

func TestAdvanceProgram(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		if call.Action == "connect" {
			return connectOK
		}
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	if err := client.AdvanceProgram(context.Background(), "dev-1"); err != nil {
		t.Fatalf("AdvanceProgram() error = %v", err)
	}

	if got := vs.lastCall().Form.Get("message_type"); got != "set_advance" {
		t.Errorf("message_type = %q, want set_advance", got)
	}
}

func TestSyncTime(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		if call.Action == "connect" {
			return connectOK
		}
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	now := time.Date(2026, 3, 14, 6, 30, 45, 0, time.UTC)
	if err := client.SyncTime(context.Background(), "dev-1", now); err != nil {
		t.Fatalf("SyncTime() error = %v", err)
	}

	call := vs.lastCall()
	if got := call.Form.Get("message_type"); got != "set_time" {
		t.Errorf("message_type = %q, want set_time", got)
	}
	if got := call.Form.Get("value"); got != "2026-03-14 06:30:45" {
		t.Errorf("value = %q, want 2026-03-14 06:30:45", got)
	}
}

func TestSetProgramSchedule(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		if call.Action == "connect" {
			return connectOK
		}
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	err := client.SetProgramSchedule(context.Background(), "dev-1", 1, 2, 0, "06:30", 21.5)
	if err != nil {
		t.Fatalf("SetProgramSchedule() error = %v", err)
	}

	call := vs.lastCall()
	if got := call.Form.Get("message_type"); got != "set_program_time" {
		t.Errorf("message_type = %q, want set_program_time", got)
	}

	want := map[string]string{
		"program":     "1",
		"day":         "2",
		"period":      "0",
		"time":        "06:30",
		"temperature": "21.5",
	}
	for field, value := range want {
		if got := call.Form.Get(field); got != value {
			t.Errorf("form[%q] = %q, want %q", field, got, value)
		}
	}
}

func TestSetProgramSchedule_Validation(t *testing.T) {
	tests := []struct {
		name        string
		program     int
		day         int
		period      int
		start       string
		temperature float64
	}{
		{"program too low", 0, 2, 0, "06:30", 21.5},
		{"program too high", 3, 2, 0, "06:30", 21.5},
		{"day negative", 1, -1, 0, "06:30", 21.5},
		{"day too high", 1, 7, 0, "06:30", 21.5},
		{"period negative", 1, 2, -1, "06:30", 21.5},
		{"bad time", 1, 2, 0, "6.30am", 21.5},
		{"temperature out of range", 1, 2, 0, "06:30", 35.0},
		{"temperature off step", 1, 2, 0, "06:30", 21.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := newVendorServer(t, func(call vendorCall) string {
				return sentOK
			})
			client := newTestClient(t, vs.URL)

			err := client.SetProgramSchedule(context.Background(), "dev-1", tt.program, tt.day, tt.period, tt.start, tt.temperature)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
			if vs.callCount() != 0 {
				t.Errorf("server saw %d calls, want 0", vs.callCount())
			}
		})
	}
}

func TestSetProgramType(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		if call.Action == "connect" {
			return connectOK
		}
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	if err := client.SetProgramType(context.Background(), "dev-1", "7_day"); err != nil {
		t.Fatalf("SetProgramType() error = %v", err)
	}

	call := vs.lastCall()
	if got := call.Form.Get("message_type"); got != "set_pgmtype" {
		t.Errorf("message_type = %q, want set_pgmtype", got)
	}
	if got := call.Form.Get("value"); got != "7_day" {
		t.Errorf("value = %q, want 7_day", got)
	}
}

func TestSetProgramType_Empty(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	if err := client.SetProgramType(context.Background(), "dev-1", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("SetProgramType(\"\") error = %v, want ErrValidation", err)
	}
	if vs.callCount() != 0 {
		t.Errorf("server saw %d calls, want 0", vs.callCount())
	}
}

func TestSendMessage_EmptyDeviceID(t *testing.T) {
	vs := newVendorServer(t, func(call vendorCall) string {
		return sentOK
	})
	client := newTestClient(t, vs.URL)

	if err := client.AdvanceProgram(context.Background(), ""); !errors.Is(err, ErrValidation) {
		t.Errorf("AdvanceProgram(\"\") error = %v, want ErrValidation", err)
	}
	if vs.callCount() != 0 {
		t.Errorf("server saw %d calls, want 0", vs.callCount())
	}
}
