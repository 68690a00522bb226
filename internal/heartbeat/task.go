// Package heartbeat emits a periodic AgentHeartbeat domain event carrying
// uptime, the set of currently active tags, and the running config
// version, so a supervising system can tell a live agent from a dead one.
// Ported from edge-agent/src/main.rs's heartbeat_handle task.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/metrics"
)

const startupDelay = 5 * time.Second

// ActiveTagProvider reports the tags currently bound to a running device,
// satisfied by *device.Manager.
type ActiveTagProvider interface {
	ActiveTagIDs() []string
}

// Task periodically publishes an AgentHeartbeat event through a
// domain.EventPublisher on a fixed cadence.
type Task struct {
	agentID       string
	configVersion func() string
	devices       ActiveTagProvider
	publisher     domain.EventPublisher
	interval      time.Duration
	logger        *slog.Logger
	startTime     time.Time
	metrics       *metrics.Metrics
}

// SetMetrics attaches a Metrics instance the task increments on every
// successful beat. Optional.
func (t *Task) SetMetrics(m *metrics.Metrics) {
	t.metrics = m
}

// NewTask constructs a heartbeat Task. configVersion is polled on every
// tick so a hot config reload is reflected in the next heartbeat without
// restarting the task.
func NewTask(agentID string, configVersion func() string, devices ActiveTagProvider, publisher domain.EventPublisher, interval time.Duration, logger *slog.Logger) *Task {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Task{
		agentID:       agentID,
		configVersion: configVersion,
		devices:       devices,
		publisher:     publisher,
		interval:      interval,
		logger:        logger,
	}
}

// Run blocks, publishing a heartbeat every interval until ctx is
// cancelled. The first tick is delayed by startupDelay so a heartbeat
// isn't published before devices have had a chance to connect.
func (t *Task) Run(ctx context.Context) {
	t.logger.Info("starting heartbeat task", "interval", t.interval)
	t.startTime = time.Now()

	select {
	case <-ctx.Done():
		return
	case <-time.After(startupDelay):
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.beat(ctx)
		}
	}
}

func (t *Task) beat(ctx context.Context) {
	uptime := uint64(time.Since(t.startTime).Seconds())
	activeTagIDs := t.devices.ActiveTagIDs()
	version := ""
	if t.configVersion != nil {
		version = t.configVersion()
	}

	event := domain.NewAgentHeartbeatEvent(t.agentID, version, uptime, activeTagIDs)
	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.Warn("failed to publish heartbeat", "error", err)
		return
	}
	if t.metrics != nil {
		t.metrics.HeartbeatsTotal.Inc()
	}
	t.logger.Debug("heartbeat sent", "config_version", version, "uptime_secs", uptime)
}
