package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/inspire-bridge/internal/device"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/inspire-bridge/internal/inspire"
)

// Defaults applied when Options leave the corresponding field zero.
const (
	defaultPollInterval     = 60 * time.Second
	defaultFailureThreshold = 3
)

// ErrNoClient is returned by New when no vendor client is supplied.
var ErrNoClient = errors.New("coordinator: vendor client is required")

// VendorClient is the slice of the Inspire API the coordinator reads from.
// Satisfied by *inspire.Client; narrowed for tests.
type VendorClient interface {
	Devices(ctx context.Context) ([]inspire.Device, error)
	DeviceInformation(ctx context.Context, deviceID string) (inspire.Information, error)
	CheckConnection(ctx context.Context, deviceID string) (bool, error)
	AccountSummary(ctx context.Context) (inspire.Summary, error)
}

// Subscriber receives a cloned snapshot after every cycle that changes
// the published view. Called from the coordinator's goroutine: keep it
// fast or hand off.
type Subscriber func(snap device.Snapshot)

// Status describes the coordinator's health for the system endpoint.
type Status struct {
	Healthy             bool   `json:"healthy"`
	LastSuccess         string `json:"last_success,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	DeviceCount         int    `json:"device_count"`
}

// Options configures a Coordinator.
type Options struct {
	Client           VendorClient
	PollInterval     time.Duration
	FailureThreshold int

	// Repository and History are optional; when set, every refresh
	// upserts devices and records state changes.
	Repository device.Repository
	History    device.StateHistoryRepository

	Logger *logging.Logger
}

// Coordinator owns the poll cycle against the Inspire cloud and publishes
// an immutable account snapshot.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Coordinator struct {
	client           VendorClient
	pollInterval     time.Duration
	failureThreshold int
	repo             device.Repository
	history          device.StateHistoryRepository
	logger           *logging.Logger

	snapshotMu sync.RWMutex
	snapshot   device.Snapshot

	subsMu  sync.Mutex
	subs    map[int]Subscriber
	nextSub int

	// refreshCh carries externally requested refreshes to the run loop.
	// Buffered with capacity 1 so any number of requests while a cycle
	// is running collapse into exactly one follow-up cycle.
	refreshCh chan struct{}

	// deviceList is cached after the first successful fetch; the vendor
	// account's device set changes rarely and the list call costs a
	// rate-limiter slot. A thermostat added to the account after startup
	// only appears once the bridge restarts.
	deviceListMu sync.Mutex
	deviceList   []inspire.Device

	failures    int
	lastSuccess time.Time
	statusMu    sync.Mutex

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a Coordinator. It does not contact the vendor; call Start.
func New(opts Options) (*Coordinator, error) {
	if opts.Client == nil {
		return nil, ErrNoClient
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = defaultFailureThreshold
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		client:           opts.Client,
		pollInterval:     opts.PollInterval,
		failureThreshold: opts.FailureThreshold,
		repo:             opts.Repository,
		history:          opts.History,
		logger:           opts.Logger.With("component", "coordinator"),
		subs:             make(map[int]Subscriber),
		refreshCh:        make(chan struct{}, 1),
		done:             make(chan struct{}),
		ctx:              ctx,
		ctxCancel:        cancel,
	}, nil
}

// Start performs the first refresh and launches the poll loop.
//
// Authentication failures on the first refresh are returned so a
// misconfigured deployment fails fast; any other first-cycle error is
// logged and left for the loop to retry.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		if errors.Is(err, inspire.ErrAuthentication) {
			return fmt.Errorf("initial refresh: %w", err)
		}
		c.logger.Warn("initial refresh failed, will retry", "error", err)
	}

	c.wg.Add(1)
	go c.run()

	c.logger.Info("coordinator started",
		"poll_interval", c.pollInterval.String(),
		"failure_threshold", c.failureThreshold)

	return nil
}

// Stop shuts the poll loop down and waits for an in-flight cycle.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.ctxCancel()
		c.wg.Wait()
		c.logger.Info("coordinator stopped")
	})
}

// RequestRefresh schedules a refresh outside the regular poll cadence,
// typically after a command was accepted by the vendor. It never blocks;
// concurrent requests collapse into one cycle.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// Snapshot returns an independent copy of the current account view.
// Before the first successful refresh the snapshot is empty and not
// available.
func (c *Coordinator) Snapshot() device.Snapshot {
	c.snapshotMu.RLock()
	defer c.snapshotMu.RUnlock()
	return *c.snapshot.Clone()
}

// Subscribe registers a subscriber for published snapshots and returns
// an unsubscribe function.
func (c *Coordinator) Subscribe(fn Subscriber) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

// Status reports coordinator health for the system endpoint.
func (c *Coordinator) Status() Status {
	c.statusMu.Lock()
	failures := c.failures
	last := c.lastSuccess
	c.statusMu.Unlock()

	snap := c.Snapshot()

	st := Status{
		Healthy:             snap.Available,
		ConsecutiveFailures: failures,
		DeviceCount:         len(snap.Thermostats),
	}
	if !last.IsZero() {
		st.LastSuccess = last.UTC().Format(time.RFC3339)
	}
	return st
}

// run is the poll loop. It owns every refresh after the initial one, so
// at most one cycle is ever in flight.
func (c *Coordinator) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		source := device.StateHistorySourcePoll
		select {
		case <-c.done:
			return
		case <-ticker.C:
		case <-c.refreshCh:
			// Requested refreshes only follow accepted commands, so
			// changes they observe are attributed to the command.
			source = device.StateHistorySourceCommand
		}

		if err := c.refreshAs(c.ctx, source); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("refresh failed", "error", err)
		}
	}
}

// refresh performs one full cycle: device list (cached), per-device
// information, account summary, then wholesale snapshot replacement.
func (c *Coordinator) refresh(ctx context.Context) error {
	return c.refreshAs(ctx, device.StateHistorySourcePoll)
}

func (c *Coordinator) refreshAs(ctx context.Context, source string) error {
	devices, err := c.listDevices(ctx)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("fetching device list: %w", err)
	}

	now := time.Now().UTC()
	thermostats := make([]device.Thermostat, 0, len(devices))
	for _, d := range devices {
		info, err := c.client.DeviceInformation(ctx, d.ID)
		if err != nil {
			c.recordFailure()
			return fmt.Errorf("fetching information for device %s: %w", d.ID, err)
		}
		connected, err := c.client.CheckConnection(ctx, d.ID)
		if err != nil {
			c.recordFailure()
			return fmt.Errorf("checking connection for device %s: %w", d.ID, err)
		}
		thermostats = append(thermostats, buildThermostat(d, info, connected, now))
	}

	// The summary is decoration; a failed summary call must not fail
	// the cycle.
	summary, err := c.client.AccountSummary(ctx)
	if err != nil {
		c.logger.Debug("account summary unavailable", "error", err)
		summary = nil
	}

	snap := device.Snapshot{
		Thermostats: thermostats,
		Summary:     summary,
		Available:   true,
		UpdatedAt:   now,
	}

	c.persist(ctx, snap, source)
	c.recordSuccess(now)
	c.publish(snap)

	return nil
}

// listDevices returns the cached device list, fetching it on first use.
// Devices registered with the account later are picked up on restart.
func (c *Coordinator) listDevices(ctx context.Context) ([]inspire.Device, error) {
	c.deviceListMu.Lock()
	defer c.deviceListMu.Unlock()

	if c.deviceList != nil {
		return c.deviceList, nil
	}

	devices, err := c.client.Devices(ctx)
	if err != nil {
		return nil, err
	}

	c.deviceList = devices
	c.logger.Info("device list loaded", "devices", len(devices))
	return devices, nil
}

// persist upserts devices and records state history for changed ones.
// Persistence errors are logged, never fatal to the cycle.
func (c *Coordinator) persist(ctx context.Context, snap device.Snapshot, source string) {
	if c.repo == nil && c.history == nil {
		return
	}

	prev := c.Snapshot()

	for i := range snap.Thermostats {
		t := &snap.Thermostats[i]

		if c.repo != nil {
			if err := c.repo.Upsert(ctx, t); err != nil {
				c.logger.Warn("device upsert failed", "device_id", t.ID, "error", err)
			}
		}

		if c.history != nil && thermostatChanged(prev.Find(t.ID), t) {
			if err := c.history.RecordStateChange(ctx, t, source); err != nil {
				c.logger.Warn("state history write failed", "device_id", t.ID, "error", err)
			}
		}
	}
}

// recordFailure bumps the consecutive-failure counter and, once the
// threshold is crossed, republishes the snapshot as unavailable. The
// stale thermostat data is kept for consumers that want last-known
// values.
func (c *Coordinator) recordFailure() {
	c.statusMu.Lock()
	c.failures++
	failures := c.failures
	c.statusMu.Unlock()

	if failures != c.failureThreshold {
		return
	}

	c.logger.Error("marking account unavailable",
		"consecutive_failures", failures)

	c.snapshotMu.Lock()
	c.snapshot.Available = false
	snap := *c.snapshot.Clone()
	c.snapshotMu.Unlock()

	c.notify(snap)
}

func (c *Coordinator) recordSuccess(now time.Time) {
	c.statusMu.Lock()
	if c.failures > 0 {
		c.logger.Info("account recovered", "after_failures", c.failures)
	}
	c.failures = 0
	c.lastSuccess = now
	c.statusMu.Unlock()
}

// publish replaces the snapshot and notifies subscribers.
func (c *Coordinator) publish(snap device.Snapshot) {
	c.snapshotMu.Lock()
	c.snapshot = *snap.Clone()
	c.snapshotMu.Unlock()

	c.notify(snap)
}

func (c *Coordinator) notify(snap device.Snapshot) {
	c.subsMu.Lock()
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range subs {
		fn(*snap.Clone())
	}
}

// buildThermostat merges a device-list entry, its information call and
// its connectivity check into the typed model.
func buildThermostat(d inspire.Device, info inspire.Information, connected bool, now time.Time) device.Thermostat {
	t := device.Thermostat{
		ID:         d.ID,
		Name:       d.Name,
		Type:       d.Type,
		Connected:  connected,
		Attributes: info,
		UpdatedAt:  now,
	}

	if name := info["Name"]; name != "" {
		t.Name = name
	}
	if model := info["Unit_Type"]; model != "" {
		t.Model = model
	}

	t.CurrentTemperature = parseTemp(info["Current_Temperature"])
	t.OnTemperature = parseTemp(info["On_Temperature"])
	t.ProfileTemperature = parseTemp(info["Profile_Temperature"])

	fn := inspire.FunctionFromStatus(info["Current_Function"])
	t.Mode = fn.String()

	// The setpoint the thermostat is actually holding: the manual
	// on-temperature when in manual mode, otherwise the programmed
	// profile temperature.
	if fn == inspire.FunctionOn {
		t.TargetTemperature = parseTemp(info["On_Temperature"])
	} else {
		t.TargetTemperature = parseTemp(info["Profile_Temperature"])
	}

	if v, ok := info["Boiler_Status"]; ok {
		on := strings.EqualFold(strings.TrimSpace(v), "on") || v == "1"
		t.BoilerOn = &on
	}

	if v, ok := info["Battery"]; ok {
		t.Battery = v
	} else if v, ok := info["Battery_Voltage"]; ok {
		t.Battery = v
	}

	return t
}

// parseTemp converts a vendor temperature string to a float pointer,
// nil when absent or malformed.
func parseTemp(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// thermostatChanged reports whether the observable state differs between
// two views of the same device. Attribute noise (signal strength, clock
// drift) is deliberately ignored.
func thermostatChanged(old, cur *device.Thermostat) bool {
	if old == nil {
		return true
	}

	return old.Mode != cur.Mode ||
		old.Battery != cur.Battery ||
		old.Connected != cur.Connected ||
		!floatEqual(old.CurrentTemperature, cur.CurrentTemperature) ||
		!floatEqual(old.TargetTemperature, cur.TargetTemperature) ||
		!boolEqual(old.BoilerOn, cur.BoilerOn)
}

func floatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
