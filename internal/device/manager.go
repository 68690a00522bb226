package device

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/driver/factory"
	"github.com/ifa-automation/scada-edge-agent/internal/metrics"
)

// DeviceDriverFactory builds the batch driver for a device and the tags
// bound to it. Satisfied by factory.CreateDeviceDriver; a narrow interface
// so tests can substitute a fake without touching real hardware.
type DeviceDriverFactory func(device domain.Device, tags []*domain.Tag) (domain.DeviceDriver, error)

type runningDevice struct {
	cancel context.CancelFunc
	tagIDs []domain.TagID
}

// Manager owns the lifecycle of every running Actor: starting one per
// enabled Device, grouping tags by their DeviceID, and stopping them all on
// shutdown.
type Manager struct {
	publisher     domain.EventPublisher
	driverFactory DeviceDriverFactory
	logger        *slog.Logger

	mu      sync.Mutex
	devices map[string]*runningDevice
	metrics *metrics.Metrics
}

// SetMetrics attaches a Metrics instance the manager keeps ActiveDevices
// in sync with. Optional.
func (m *Manager) SetMetrics(mx *metrics.Metrics) {
	m.metrics = mx
}

// recordDeviceCount must be called with m.mu held.
func (m *Manager) recordDeviceCount() {
	if m.metrics != nil {
		m.metrics.ActiveDevices.Set(float64(len(m.devices)))
	}
}

// NewManager constructs a Manager using factory.CreateDeviceDriver.
func NewManager(publisher domain.EventPublisher, logger *slog.Logger) *Manager {
	return NewManagerWithFactory(publisher, factory.CreateDeviceDriver, logger)
}

// NewManagerWithFactory constructs a Manager with an injectable driver
// factory, for tests.
func NewManagerWithFactory(publisher domain.EventPublisher, driverFactory DeviceDriverFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		publisher:     publisher,
		driverFactory: driverFactory,
		logger:        logger,
		devices:       make(map[string]*runningDevice),
	}
}

// StartDevices groups tags by DeviceID, skips disabled devices and tags
// with no device binding, and spawns one Actor goroutine per enabled
// device that isn't already running.
func (m *Manager) StartDevices(ctx context.Context, devices []domain.Device, tags []*domain.Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDevice := make(map[string][]*domain.Tag)
	for _, tag := range tags {
		devID := tag.DeviceID()
		if devID == "" {
			m.logger.Debug("tag has no device_id, skipping in device manager", "tag_id", tag.ID())
			continue
		}
		byDevice[devID] = append(byDevice[devID], tag)
	}

	for _, dev := range devices {
		if !dev.Enabled {
			m.logger.Info("skipping disabled device", "device_id", dev.ID)
			continue
		}
		if _, running := m.devices[dev.ID]; running {
			m.logger.Warn("device actor already running", "device_id", dev.ID)
			continue
		}

		devTags := byDevice[dev.ID]
		tagIDs := make([]domain.TagID, 0, len(devTags))
		for _, t := range devTags {
			tagIDs = append(tagIDs, t.ID())
		}

		driver, err := m.driverFactory(dev, devTags)
		if err != nil {
			m.logger.Error("failed to create device driver", "device_id", dev.ID, "error", err)
			continue
		}

		actor := NewActor(dev, driver, devTags, m.publisher, m.logger)
		actorCtx, cancel := context.WithCancel(ctx)
		go actor.Run(actorCtx)

		m.devices[dev.ID] = &runningDevice{cancel: cancel, tagIDs: tagIDs}
	}
	m.recordDeviceCount()
}

// StopAll cancels every running Actor.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rd := range m.devices {
		m.logger.Info("stopping device actor", "device_id", id)
		rd.cancel()
	}
	m.devices = make(map[string]*runningDevice)
	m.recordDeviceCount()
}

// ActiveTagIDs returns every tag ID bound to a currently running device.
func (m *Manager) ActiveTagIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, rd := range m.devices {
		for _, id := range rd.tagIDs {
			ids = append(ids, id.String())
		}
	}
	return ids
}
