package hass

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/inspire-bridge/internal/coordinator"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/mqtt"
)

// Health status values published in health documents.
const (
	HealthStarting = "starting"
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthStopping = "stopping"
)

// defaultHealthInterval is how often health is published when the
// reporter is not configured with an interval.
const defaultHealthInterval = 30 * time.Second

// HealthPublisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// StatusSource reports coordinator health for the health document.
type StatusSource interface {
	Status() coordinator.Status
}

// HealthMessage is the JSON document published to the health topic.
type HealthMessage struct {
	Status              string `json:"status"`
	Version             string `json:"version,omitempty"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
	Devices             int    `json:"devices"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastSuccess         string `json:"last_success,omitempty"`
	Reason              string `json:"reason,omitempty"`
	Timestamp           string `json:"timestamp"`
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher HealthPublisher

	// Coordinator supplies polling health.
	Coordinator StatusSource

	// Logger is optional.
	Logger *logging.Logger
}

// HealthReporter publishes periodic bridge health documents to MQTT.
// Degradation tracks the two upstream dependencies: the broker
// connection and the vendor account's polling health.
type HealthReporter struct {
	version     string
	startTime   time.Time
	interval    time.Duration
	publisher   HealthPublisher
	coordinator StatusSource
	topics      mqtt.Topics

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger *logging.Logger
}

// NewHealthReporter creates a new health reporter.
// Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultHealthInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &HealthReporter{
		version:     cfg.Version,
		startTime:   time.Now(),
		interval:    interval,
		publisher:   cfg.Publisher,
		coordinator: cfg.Coordinator,
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Start begins periodic health reporting.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop gracefully stops health reporting.
// Publishes a final "stopping" status before returning.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown, nothing we can do if it fails
		h.publishStatus(HealthStopping, "")
	})
}

// PublishStarting publishes a "starting" status.
// Called during bridge initialisation.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// reportLoop runs the periodic health reporting.
func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Warn("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Warn("failed to publish health", "error", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (string, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}

	if h.coordinator != nil && !h.coordinator.Status().Healthy {
		return HealthDegraded, "vendor account unavailable"
	}

	return HealthHealthy, ""
}

// publishStatus publishes a health status message (QoS 1, retained).
func (h *HealthReporter) publishStatus(status, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := HealthMessage{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Reason:        reason,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	if h.coordinator != nil {
		cs := h.coordinator.Status()
		msg.Devices = cs.DeviceCount
		msg.ConsecutiveFailures = cs.ConsecutiveFailures
		msg.LastSuccess = cs.LastSuccess
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return h.publisher.Publish(h.topics.BridgeHealth(), payload, 1, true)
}
