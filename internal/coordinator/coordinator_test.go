package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/inspire-bridge/internal/device"
	"github.com/nerrad567/inspire-bridge/internal/inspire"
)

// fakeClient implements VendorClient with scriptable responses.
type fakeClient struct {
	mu sync.Mutex

	devices []inspire.Device
	info    map[string]inspire.Information
	summary inspire.Summary

	// Devices absent from disconnected report as connected.
	disconnected map[string]bool

	devicesErr error
	infoErr    error
	connErr    error
	summaryErr error

	devicesCalls int
	infoCalls    int
	connCalls    int
	summaryCalls int

	// When set, DeviceInformation signals infoStarted once per call and
	// then blocks until infoGate yields.
	infoGate    chan struct{}
	infoStarted chan struct{}
}

func (f *fakeClient) Devices(_ context.Context) ([]inspire.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devicesCalls++
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	return f.devices, nil
}

func (f *fakeClient) DeviceInformation(_ context.Context, deviceID string) (inspire.Information, error) {
	f.mu.Lock()
	started := f.infoStarted
	gate := f.infoGate
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info[deviceID], nil
}

func (f *fakeClient) CheckConnection(_ context.Context, deviceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connCalls++
	if f.connErr != nil {
		return false, f.connErr
	}
	return !f.disconnected[deviceID], nil
}

func (f *fakeClient) AccountSummary(_ context.Context) (inspire.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summary, nil
}

func (f *fakeClient) counts() (devices, info, summary int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devicesCalls, f.infoCalls, f.summaryCalls
}

func (f *fakeClient) setInfoErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoErr = err
}

func testDevices() []inspire.Device {
	return []inspire.Device{
		{ID: "1234", Name: "Hallway", Type: "NC-1"},
		{ID: "5678", Name: "Bedroom", Type: "NC-2"},
	}
}

func testInfo() map[string]inspire.Information {
	return map[string]inspire.Information{
		"1234": {
			"Name":                "Hallway",
			"Current_Temperature": "19.5",
			"Current_Function":    "Program 1",
			"Profile_Temperature": "21.0",
			"On_Temperature":      "25.0",
			"Boiler_Status":       "On",
			"Battery":             "OK",
		},
		"5678": {
			"Name":                "Bedroom",
			"Current_Temperature": "17.0",
			"Current_Function":    "On",
			"Profile_Temperature": "20.0",
			"On_Temperature":      "22.5",
			"Boiler_Status":       "Off",
			"Battery_Voltage":     "2.9",
		},
	}
}

func newTestCoordinator(t *testing.T, client VendorClient) *Coordinator {
	t.Helper()

	c, err := New(Options{
		Client:       client,
		PollInterval: time.Hour, // ticks never fire during tests
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestRefresh_BuildsSnapshot(t *testing.T) {
	client := &fakeClient{
		devices: testDevices(),
		info:    testInfo(),
		summary: inspire.Summary{"Connected_Units": "2"},
	}
	c := newTestCoordinator(t, client)

	if err := c.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	snap := c.Snapshot()
	if !snap.Available {
		t.Error("snapshot should be available after successful refresh")
	}
	if len(snap.Thermostats) != 2 {
		t.Fatalf("thermostats = %d, want 2", len(snap.Thermostats))
	}
	if snap.Summary["Connected_Units"] != "2" {
		t.Errorf("Summary = %v, want Connected_Units=2", snap.Summary)
	}

	hall := snap.Find("1234")
	if hall == nil {
		t.Fatal("device 1234 missing from snapshot")
	}
	if hall.Mode != "program1" {
		t.Errorf("Mode = %q, want program1", hall.Mode)
	}
	if hall.CurrentTemperature == nil || *hall.CurrentTemperature != 19.5 {
		t.Errorf("CurrentTemperature = %v, want 19.5", hall.CurrentTemperature)
	}
	// Program mode holds the profile temperature.
	if hall.TargetTemperature == nil || *hall.TargetTemperature != 21.0 {
		t.Errorf("TargetTemperature = %v, want 21.0", hall.TargetTemperature)
	}
	if hall.BoilerOn == nil || !*hall.BoilerOn {
		t.Error("BoilerOn should be true for Boiler_Status=On")
	}
	if hall.Battery != "OK" {
		t.Errorf("Battery = %q, want OK", hall.Battery)
	}

	bed := snap.Find("5678")
	if bed == nil {
		t.Fatal("device 5678 missing from snapshot")
	}
	// Manual mode holds the on-temperature.
	if bed.Mode != "manual" {
		t.Errorf("Mode = %q, want manual", bed.Mode)
	}
	if bed.TargetTemperature == nil || *bed.TargetTemperature != 22.5 {
		t.Errorf("TargetTemperature = %v, want 22.5", bed.TargetTemperature)
	}
	if bed.BoilerOn == nil || *bed.BoilerOn {
		t.Error("BoilerOn should be false for Boiler_Status=Off")
	}
	// No Battery key, so the voltage is surfaced instead.
	if bed.Battery != "2.9" {
		t.Errorf("Battery = %q, want 2.9", bed.Battery)
	}
}

func TestRefresh_DeviceListCached(t *testing.T) {
	client := &fakeClient{devices: testDevices(), info: testInfo()}
	c := newTestCoordinator(t, client)

	for n := 0; n < 3; n++ {
		if err := c.refresh(context.Background()); err != nil {
			t.Fatalf("refresh() error = %v", err)
		}
	}

	devices, info, _ := client.counts()
	if devices != 1 {
		t.Errorf("Devices calls = %d, want 1 (cached after first fetch)", devices)
	}
	if info != 6 {
		t.Errorf("DeviceInformation calls = %d, want 6 (2 devices x 3 cycles)", info)
	}
}

func TestRefresh_ReportsDeviceConnectivity(t *testing.T) {
	client := &fakeClient{
		devices:      testDevices(),
		info:         testInfo(),
		disconnected: map[string]bool{"5678": true},
	}
	c := newTestCoordinator(t, client)

	if err := c.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	snap := c.Snapshot()
	hall := snap.Find("1234")
	if hall == nil || !hall.Connected {
		t.Error("device 1234 should report Connected=true")
	}
	bed := snap.Find("5678")
	if bed == nil || bed.Connected {
		t.Error("device 5678 should report Connected=false")
	}

	client.mu.Lock()
	connCalls := client.connCalls
	client.mu.Unlock()
	if connCalls != 2 {
		t.Errorf("CheckConnection calls = %d, want 2 (one per device)", connCalls)
	}
}

func TestRefresh_ConnectionCheckFailureFailsCycle(t *testing.T) {
	client := &fakeClient{
		devices: testDevices(),
		info:    testInfo(),
		connErr: inspire.ErrConnection,
	}
	c := newTestCoordinator(t, client)

	err := c.refresh(context.Background())
	if !errors.Is(err, inspire.ErrConnection) {
		t.Fatalf("refresh() error = %v, want ErrConnection", err)
	}
	if st := c.Status(); st.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", st.ConsecutiveFailures)
	}
}

func TestRefresh_SummaryFailureTolerated(t *testing.T) {
	client := &fakeClient{
		devices:    testDevices(),
		info:       testInfo(),
		summaryErr: inspire.ErrConnection,
	}
	c := newTestCoordinator(t, client)

	if err := c.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	snap := c.Snapshot()
	if !snap.Available {
		t.Error("summary failure must not fail the cycle")
	}
	if len(snap.Summary) != 0 {
		t.Errorf("Summary = %v, want empty", snap.Summary)
	}
}

func TestRefresh_FailureThresholdMarksUnavailable(t *testing.T) {
	client := &fakeClient{devices: testDevices(), info: testInfo()}
	c := newTestCoordinator(t, client)

	// One good cycle populates the snapshot.
	if err := c.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	var notified []device.Snapshot
	var mu sync.Mutex
	c.Subscribe(func(snap device.Snapshot) {
		mu.Lock()
		notified = append(notified, snap)
		mu.Unlock()
	})

	client.setInfoErr(inspire.ErrConnection)

	// Failures below the threshold keep the stale snapshot available.
	for i := 0; i < 2; i++ {
		if err := c.refresh(context.Background()); err == nil {
			t.Fatalf("refresh() %d should fail", i)
		}
		if snap := c.Snapshot(); !snap.Available {
			t.Fatalf("snapshot unavailable after %d failures, threshold is 3", i+1)
		}
	}

	// The third consecutive failure crosses the threshold.
	if err := c.refresh(context.Background()); err == nil {
		t.Fatal("refresh() should fail")
	}

	snap := c.Snapshot()
	if snap.Available {
		t.Error("snapshot should be unavailable after threshold failures")
	}
	if len(snap.Thermostats) != 2 {
		t.Errorf("stale thermostat data should be kept, got %d", len(snap.Thermostats))
	}

	mu.Lock()
	defer mu.Unlock()
	if len(notified) != 1 {
		t.Fatalf("subscribers notified %d times, want 1 (threshold crossing only)", len(notified))
	}
	if notified[0].Available {
		t.Error("threshold notification should carry Available=false")
	}
}

func TestRefresh_SuccessResetsFailures(t *testing.T) {
	client := &fakeClient{devices: testDevices(), info: testInfo()}
	c := newTestCoordinator(t, client)

	client.setInfoErr(inspire.ErrConnection)
	for n := 0; n < 2; n++ {
		_ = c.refresh(context.Background()) //nolint:errcheck // failure is the scenario
	}

	if st := c.Status(); st.ConsecutiveFailures != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2", st.ConsecutiveFailures)
	}

	client.setInfoErr(nil)
	if err := c.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	st := c.Status()
	if st.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after success", st.ConsecutiveFailures)
	}
	if !st.Healthy {
		t.Error("Status should be healthy after successful refresh")
	}
	if st.LastSuccess == "" {
		t.Error("LastSuccess should be set after successful refresh")
	}
}

func TestStart_FailsFastOnAuthError(t *testing.T) {
	client := &fakeClient{devicesErr: inspire.ErrAuthentication}
	c := newTestCoordinator(t, client)

	err := c.Start(context.Background())
	if !errors.Is(err, inspire.ErrAuthentication) {
		t.Fatalf("Start() error = %v, want ErrAuthentication", err)
	}
}

func TestStart_ToleratesTransientFirstFailure(t *testing.T) {
	client := &fakeClient{devicesErr: inspire.ErrConnection}
	c := newTestCoordinator(t, client)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v, transient errors should not fail startup", err)
	}
	c.Stop()
}

func TestRequestRefresh_Collapses(t *testing.T) {
	client := &fakeClient{devices: testDevices(), info: testInfo()}
	c := newTestCoordinator(t, client)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	_, infoAfterStart, _ := client.counts()

	// Gate the next cycle so requests pile up while one is in flight.
	started := make(chan struct{}, 16)
	gate := make(chan struct{})
	client.mu.Lock()
	client.infoStarted = started
	client.infoGate = gate
	client.mu.Unlock()

	c.RequestRefresh()
	<-started // cycle is now blocked mid-flight

	// All of these arrive while a refresh is running; they must collapse
	// into exactly one follow-up cycle.
	for n := 0; n < 5; n++ {
		c.RequestRefresh()
	}

	// Release the in-flight cycle and the single follow-up.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 0; n < 3; n++ { // remaining info calls of cycle 1 + cycle 2
			<-started
		}
	}()
	for n := 0; n < 4; n++ {
		gate <- struct{}{}
	}
	<-done

	client.mu.Lock()
	client.infoStarted = nil
	client.infoGate = nil
	client.mu.Unlock()

	// Give the loop a moment to (incorrectly) start any extra cycles.
	time.Sleep(50 * time.Millisecond)

	_, info, _ := client.counts()
	if got := info - infoAfterStart; got != 4 {
		t.Errorf("info calls after start = %d, want 4 (two cycles of two devices)", got)
	}
}

// fakeHistory records state changes in memory.
type fakeHistory struct {
	mu      sync.Mutex
	entries []device.StateHistoryEntry
}

func (f *fakeHistory) RecordStateChange(_ context.Context, t *device.Thermostat, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, device.StateHistoryEntry{
		DeviceID: t.ID,
		State:    *t.DeepCopy(),
		Source:   source,
	})
	return nil
}

func (f *fakeHistory) GetHistory(_ context.Context, _ string, _ int) ([]device.StateHistoryEntry, error) {
	return nil, nil
}

func (f *fakeHistory) PruneHistory(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func TestRefresh_RecordsHistoryOnChangeOnly(t *testing.T) {
	client := &fakeClient{devices: testDevices(), info: testInfo()}
	history := &fakeHistory{}

	c, err := New(Options{
		Client:       client,
		PollInterval: time.Hour,
		History:      history,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// First cycle: everything is new, both devices recorded.
	if err := c.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	// Second cycle with identical data: nothing recorded.
	if err := c.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	// Third cycle with a changed temperature: one device recorded.
	client.mu.Lock()
	client.info["1234"]["Current_Temperature"] = "20.5"
	client.mu.Unlock()

	if err := c.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	history.mu.Lock()
	defer history.mu.Unlock()

	if len(history.entries) != 3 {
		t.Fatalf("history entries = %d, want 3 (2 initial + 1 change)", len(history.entries))
	}
	for _, e := range history.entries {
		if e.Source != device.StateHistorySourcePoll {
			t.Errorf("Source = %q, want %q", e.Source, device.StateHistorySourcePoll)
		}
	}
	last := history.entries[2]
	if last.DeviceID != "1234" {
		t.Errorf("changed device = %q, want 1234", last.DeviceID)
	}
	if last.State.CurrentTemperature == nil || *last.State.CurrentTemperature != 20.5 {
		t.Errorf("recorded temperature = %v, want 20.5", last.State.CurrentTemperature)
	}
}

func TestParseTemp(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"19.5", ptr(19.5)},
		{" 21 ", ptr(21.0)},
		{"", nil},
		{"warm", nil},
	}

	for _, tt := range tests {
		got := parseTemp(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseTemp(%q) = %v, want nil", tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseTemp(%q) = %v, want %v", tt.in, got, *tt.want)
		}
	}
}

func ptr(f float64) *float64 { return &f }
