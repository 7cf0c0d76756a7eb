package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/inspire-bridge/internal/audit"
	"github.com/nerrad567/inspire-bridge/internal/device"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/inspire-bridge/internal/inspire"
)

// CommandClient is the slice of the Inspire API the service layer writes
// through. Satisfied by *inspire.Client; narrowed for tests.
type CommandClient interface {
	SetTemperature(ctx context.Context, deviceID string, temperature float64) error
	SetFunction(ctx context.Context, deviceID string, fn inspire.Function) error
	ScheduleStart(ctx context.Context, deviceID string, at time.Time) error
	CancelScheduledStart(ctx context.Context, deviceID string) error
	AdvanceProgram(ctx context.Context, deviceID string) error
	SyncTime(ctx context.Context, deviceID string, now time.Time) error
	SetProgramSchedule(ctx context.Context, deviceID string, program, day, period int, start string, temperature float64) error
	SetProgramType(ctx context.Context, deviceID, programType string) error
}

// SnapshotSource resolves devices and schedules refreshes. Satisfied by
// *coordinator.Coordinator.
type SnapshotSource interface {
	Snapshot() device.Snapshot
	RequestRefresh()
}

// Actor identifies who issued a command, for the audit trail.
type Actor struct {
	// UserID is the authenticated user, empty for MQTT commands.
	UserID string

	// Source is the entry point: "api" or "mqtt".
	Source string
}

// Commands dispatches the bridge's write operations.
//
// Thread Safety: safe for concurrent use; the vendor client serialises
// calls through its rate limiter.
type Commands struct {
	client  CommandClient
	source  SnapshotSource
	auditor audit.Repository
	logger  *logging.Logger
}

// Options configures a Commands dispatcher. Auditor is optional.
type Options struct {
	Client  CommandClient
	Source  SnapshotSource
	Auditor audit.Repository
	Logger  *logging.Logger
}

// New creates a command dispatcher.
func New(opts Options) *Commands {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Commands{
		client:  opts.Client,
		source:  opts.Source,
		auditor: opts.Auditor,
		logger:  opts.Logger.With("component", "service"),
	}
}

// SetTemperature sets the manual target temperature.
func (s *Commands) SetTemperature(ctx context.Context, actor Actor, deviceID string, temperature float64) error {
	return s.dispatch(ctx, actor, deviceID, "set_temperature",
		map[string]any{"temperature": temperature},
		func(ctx context.Context) error {
			return s.client.SetTemperature(ctx, deviceID, temperature)
		})
}

// SetMode changes the thermostat function. Mode is a canonical name
// (off, program1, program2, both, manual, boost).
func (s *Commands) SetMode(ctx context.Context, actor Actor, deviceID, mode string) error {
	fn, err := inspire.ParseFunction(mode)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, actor, deviceID, "set_mode",
		map[string]any{"mode": fn.String()},
		func(ctx context.Context) error {
			return s.client.SetFunction(ctx, deviceID, fn)
		})
}

// ScheduleStart schedules a one-shot heating start.
func (s *Commands) ScheduleStart(ctx context.Context, actor Actor, deviceID string, at time.Time) error {
	return s.dispatch(ctx, actor, deviceID, "schedule_start",
		map[string]any{"at": at.Format(time.RFC3339)},
		func(ctx context.Context) error {
			return s.client.ScheduleStart(ctx, deviceID, at)
		})
}

// CancelScheduledStart cancels a pending scheduled start. Idempotent:
// cancelling when nothing is scheduled succeeds.
func (s *Commands) CancelScheduledStart(ctx context.Context, actor Actor, deviceID string) error {
	return s.dispatch(ctx, actor, deviceID, "cancel_scheduled_start", nil,
		func(ctx context.Context) error {
			return s.client.CancelScheduledStart(ctx, deviceID)
		})
}

// AdvanceProgram advances the thermostat to its next program period.
func (s *Commands) AdvanceProgram(ctx context.Context, actor Actor, deviceID string) error {
	return s.dispatch(ctx, actor, deviceID, "advance_program", nil,
		func(ctx context.Context) error {
			return s.client.AdvanceProgram(ctx, deviceID)
		})
}

// SyncTime pushes the bridge host's clock to the thermostat.
func (s *Commands) SyncTime(ctx context.Context, actor Actor, deviceID string) error {
	now := time.Now()
	return s.dispatch(ctx, actor, deviceID, "sync_time",
		map[string]any{"time": now.Format(time.RFC3339)},
		func(ctx context.Context) error {
			return s.client.SyncTime(ctx, deviceID, now)
		})
}

// SetProgramSchedule updates one period of a weekly program.
func (s *Commands) SetProgramSchedule(ctx context.Context, actor Actor, deviceID string, program, day, period int, start string, temperature float64) error {
	return s.dispatch(ctx, actor, deviceID, "set_program_schedule",
		map[string]any{
			"program":     program,
			"day":         day,
			"period":      period,
			"time":        start,
			"temperature": temperature,
		},
		func(ctx context.Context) error {
			return s.client.SetProgramSchedule(ctx, deviceID, program, day, period, start, temperature)
		})
}

// SetProgramType changes the thermostat's program type.
func (s *Commands) SetProgramType(ctx context.Context, actor Actor, deviceID, programType string) error {
	return s.dispatch(ctx, actor, deviceID, "set_program_type",
		map[string]any{"type": programType},
		func(ctx context.Context) error {
			return s.client.SetProgramType(ctx, deviceID, programType)
		})
}

// dispatch runs the shared write path: snapshot resolve, vendor call,
// audit, refresh request.
func (s *Commands) dispatch(ctx context.Context, actor Actor, deviceID, command string, params map[string]any, call func(ctx context.Context) error) error {
	// Resolve against the snapshot first so typos never reach the
	// vendor or consume a rate-limit slot.
	snap := s.source.Snapshot()
	if snap.Find(deviceID) == nil {
		return fmt.Errorf("%w: %s", inspire.ErrDeviceNotFound, deviceID)
	}

	err := call(ctx)
	s.record(ctx, actor, deviceID, command, params, err)

	if err != nil {
		return err
	}

	// Pull the new state early instead of waiting out the poll interval.
	s.source.RequestRefresh()

	return nil
}

// record writes the audit entry. Audit failures are logged, never
// surfaced: the command already ran.
func (s *Commands) record(ctx context.Context, actor Actor, deviceID, command string, params map[string]any, cmdErr error) {
	if s.auditor == nil {
		return
	}

	entry := &audit.Entry{
		DeviceID:   deviceID,
		Command:    command,
		Parameters: params,
		UserID:     actor.UserID,
		Source:     actor.Source,
	}
	if cmdErr != nil {
		entry.Status = audit.StatusFailed
		entry.Error = cmdErr.Error()
	} else {
		entry.Status = audit.StatusSent
	}

	if err := s.auditor.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed",
			"device_id", deviceID,
			"command", command,
			"error", err)
	}
}
