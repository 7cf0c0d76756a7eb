package hass

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/inspire-bridge/internal/coordinator"
	"github.com/nerrad567/inspire-bridge/internal/device"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/inspire-bridge/internal/service"
)

// Bridge operation constants.
const (
	// commandTopicParts is the exact part count of a device command topic
	// (inspire/command/{device_id}/{command}).
	commandTopicParts = 4

	// commandTimeout bounds a single vendor command dispatch. The vendor
	// cloud is slow and every call sits behind the shared rate limiter,
	// so this is generous compared to a LAN bridge.
	commandTimeout = 15 * time.Second

	// stateQoS is the QoS for state, discovery and availability publishes.
	stateQoS = 1

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Coordinator is the slice of the polling coordinator the bridge needs:
// the current snapshot, a change feed and health for the reporter.
type Coordinator interface {
	Snapshot() device.Snapshot
	Subscribe(fn coordinator.Subscriber) func()
	Status() coordinator.Status
}

// CommandDispatcher executes thermostat writes. Satisfied by
// *service.Commands; narrowed to the two operations Home Assistant
// drives over MQTT.
type CommandDispatcher interface {
	SetTemperature(ctx context.Context, actor service.Actor, deviceID string, temperature float64) error
	SetMode(ctx context.Context, actor service.Actor, deviceID, mode string) error
}

// Bridge publishes coordinator snapshots to MQTT for Home Assistant and
// translates inbound command topics into service-layer calls.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt        MQTTClient
	coordinator Coordinator
	commands    CommandDispatcher
	health      *HealthReporter
	topics      mqtt.Topics

	discoveryPrefix string

	// Discovery announcements already published, keyed by device ID.
	// Summary sensors are tracked by summary key under the "" device.
	announced   map[string]map[string]bool
	announcedMu sync.Mutex

	// Last published state payload per device, for change suppression.
	stateCache   map[string]string
	stateCacheMu sync.Mutex

	// Account availability last published, so flaps are logged once.
	lastAvailable   bool
	lastAvailableMu sync.Mutex

	unsubscribe func()

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger *logging.Logger
}

// Options holds configuration for creating a bridge.
type Options struct {
	// MQTT is the broker client.
	MQTT MQTTClient

	// Coordinator supplies snapshots and change notifications.
	Coordinator Coordinator

	// Commands dispatches thermostat writes.
	Commands CommandDispatcher

	// DiscoveryPrefix is the Home Assistant discovery prefix.
	// Empty means the HA default ("homeassistant").
	DiscoveryPrefix string

	// HealthInterval is how often bridge health is published.
	// Zero means the reporter default.
	HealthInterval time.Duration

	// Version is the bridge software version, for health documents.
	Version string

	// Logger is the structured logger. Defaults to logging.Default().
	Logger *logging.Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("hass: MQTT client is required")
	}
	if opts.Coordinator == nil {
		return nil, fmt.Errorf("hass: coordinator is required")
	}
	if opts.Commands == nil {
		return nil, fmt.Errorf("hass: command dispatcher is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", "hass_bridge")

	// Bridge-level context so in-flight commands abort on Stop().
	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		mqtt:            opts.MQTT,
		coordinator:     opts.Coordinator,
		commands:        opts.Commands,
		discoveryPrefix: opts.DiscoveryPrefix,
		announced:       make(map[string]map[string]bool),
		stateCache:      make(map[string]string),
		lastAvailable:   true,
		done:            make(chan struct{}),
		ctx:             ctx,
		ctxCancel:       ctxCancel,
		logger:          logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		Version:     opts.Version,
		Interval:    opts.HealthInterval,
		Publisher:   opts.MQTT,
		Coordinator: opts.Coordinator,
		Logger:      logger,
	})

	return b, nil
}

// Start begins bridge operation. It subscribes to command topics,
// attaches to the coordinator's change feed, publishes discovery and
// state for the current snapshot and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logger.Warn("failed to publish starting status", "error", err)
	}

	commandTopic := b.topics.AllDeviceCommands()
	if err := b.mqtt.Subscribe(commandTopic, stateQoS, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", commandTopic)

	// Current snapshot first, then the feed. A refresh landing between
	// the two republishes identical state, which the cache suppresses.
	snap := b.coordinator.Snapshot()
	b.handleSnapshot(snap)
	b.unsubscribe = b.coordinator.Subscribe(b.handleSnapshot)

	b.health.Start(ctx)

	b.logger.Info("bridge started",
		"devices", len(snap.Thermostats),
		"discovery_prefix", b.discoveryPrefixOrDefault())

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		if b.unsubscribe != nil {
			b.unsubscribe()
		}

		// Cancel bridge context to abort in-flight commands
		b.ctxCancel()

		// Stop health reporting (publishes "stopping" status)
		b.health.Stop()

		b.wg.Wait()

		b.logger.Info("bridge stopped")
	})
}

// handleSnapshot publishes discovery, state, availability and the
// account summary for a coordinator snapshot. Runs on the coordinator's
// notify goroutine, so it must not block on anything but the broker.
func (b *Bridge) handleSnapshot(snap device.Snapshot) {
	select {
	case <-b.done:
		return
	default:
	}

	b.publishAvailability(snap.Available)

	for i := range snap.Thermostats {
		t := &snap.Thermostats[i]
		b.ensureDiscovery(t)
		b.publishState(t)
	}

	b.publishSummary(snap.Summary)
}

// publishAvailability mirrors coordinator availability onto the account
// status topic. Retained, so Home Assistant sees the right state on
// restart without waiting for a poll.
func (b *Bridge) publishAvailability(available bool) {
	b.lastAvailableMu.Lock()
	changed := available != b.lastAvailable
	b.lastAvailable = available
	b.lastAvailableMu.Unlock()

	payload := payloadOnline
	if !available {
		payload = payloadOffline
	}

	if err := b.mqtt.Publish(b.topics.AccountStatus(), []byte(payload), stateQoS, true); err != nil {
		b.logger.Warn("failed to publish account availability", "error", err)
		return
	}

	if changed {
		b.logger.Info("account availability changed", "available", available)
	}
}

// publishState publishes a thermostat's state document if it differs
// from the last published one. The document deliberately carries no
// timestamp so an unchanged device produces no broker traffic.
func (b *Bridge) publishState(t *device.Thermostat) {
	payload, err := buildStatePayload(t)
	if err != nil {
		b.logger.Warn("failed to build state payload", "device_id", t.ID, "error", err)
		return
	}

	b.stateCacheMu.Lock()
	unchanged := b.stateCache[t.ID] == string(payload)
	if !unchanged {
		b.stateCache[t.ID] = string(payload)
	}
	b.stateCacheMu.Unlock()

	if unchanged {
		return
	}

	topic := b.topics.DeviceState(t.ID)
	if err := b.mqtt.Publish(topic, payload, stateQoS, true); err != nil {
		b.logger.Warn("failed to publish state", "device_id", t.ID, "error", err)
		// Drop the cache entry so the next snapshot retries.
		b.stateCacheMu.Lock()
		delete(b.stateCache, t.ID)
		b.stateCacheMu.Unlock()
		return
	}

	b.logger.Debug("published state", "device_id", t.ID, "topic", topic)
}

// handleMQTTMessage routes inbound command topics.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts || parts[0] != mqtt.TopicPrefix || parts[1] != "command" {
		b.logger.Warn("ignoring message on unexpected topic", "topic", topic)
		return nil
	}

	deviceID := parts[2]
	command := parts[3]

	b.wg.Add(1)
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := b.executeCommand(ctx, deviceID, command, payload); err != nil {
		b.logger.Warn("command failed",
			"device_id", deviceID,
			"command", command,
			"error", err)
		return err
	}

	b.logger.Info("command executed", "device_id", deviceID, "command", command)
	return nil
}

// executeCommand dispatches one command through the service layer.
func (b *Bridge) executeCommand(ctx context.Context, deviceID, command string, payload []byte) error {
	actor := service.Actor{Source: "mqtt"}
	value := strings.TrimSpace(string(payload))

	switch command {
	case "set_temperature":
		temperature, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("parse temperature %q: %w", value, err)
		}
		return b.commands.SetTemperature(ctx, actor, deviceID, temperature)

	case "set_mode":
		return b.commands.SetMode(ctx, actor, deviceID, translateMode(value))

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// translateMode maps Home Assistant's climate vocabulary onto the
// canonical function names. Canonical names pass through untouched, so
// other MQTT clients can use them directly.
func translateMode(mode string) string {
	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case "auto":
		return "program1"
	case "heat":
		return "manual"
	case "none":
		// Clearing the boost preset returns to the schedule.
		return "program1"
	default:
		return m
	}
}

func (b *Bridge) discoveryPrefixOrDefault() string {
	if b.discoveryPrefix == "" {
		return "homeassistant"
	}
	return b.discoveryPrefix
}
