package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/metrics"
	"github.com/ifa-automation/scada-edge-agent/pkg/logger"
)

// Message is an incoming broker publish delivered to a Subscriber handler.
// Duplicated locally rather than importing internal/broker, matching the
// PublisherClient seam pattern used by internal/forward.
type Message struct {
	Topic   string
	Payload []byte
}

// Subscriber is the narrow broker surface ConfigManager needs: register a
// handler for its config topic. Satisfied by *broker.Client via a thin
// adapter at wiring time.
type Subscriber interface {
	Subscribe(topic string, handler func(Message)) error
}

// AutomationReloader is the narrow automation engine surface ConfigManager
// drives on hot reload. Satisfied by *automation.Engine.
type AutomationReloader interface {
	ReloadFromTags(tags []*domain.Tag)
}

// DeviceRestarter is the narrow device manager surface ConfigManager drives
// on hot reload. Satisfied by *device.Manager.
type DeviceRestarter interface {
	StopAll()
	StartDevices(ctx context.Context, devices []domain.Device, tags []*domain.Tag)
}

// Manager subscribes to scada/config/{agent_id}, deduplicates, sanitizes
// and persists each update, then hot-reloads the automation engine, tag
// repository, and device manager from it. Ported from
// edge-agent/src/config_manager.rs's ConfigManager.
type Manager struct {
	agentID    string
	configDir  string
	repository domain.TagRepository
	automation AutomationReloader
	devices    DeviceRestarter
	logger     *slog.Logger

	mu          sync.Mutex
	lastPayload []byte
	metrics     *metrics.Metrics
	reloadCount float64
}

// SetMetrics attaches a Metrics instance the manager records reload
// outcomes to. Optional.
func (m *Manager) SetMetrics(mx *metrics.Metrics) {
	m.metrics = mx
}

// NewManager constructs a Manager. configDir is the directory default.yaml
// and last_known.json live in.
func NewManager(agentID, configDir string, repository domain.TagRepository, automation AutomationReloader, devices DeviceRestarter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		agentID:    agentID,
		configDir:  configDir,
		repository: repository,
		automation: automation,
		devices:    devices,
		logger:     logger,
	}
}

// Topic returns the broker topic this manager listens on.
func (m *Manager) Topic() string {
	return fmt.Sprintf("scada/config/%s", m.agentID)
}

// Start registers this manager's handler with sub. The in-process
// subscription callback must be wired before the broker SUBSCRIBE packet
// is sent — Subscribe itself guarantees that ordering since the caller's
// broker.Client records the handler before issuing SUBSCRIBE.
func (m *Manager) Start(sub Subscriber) error {
	topic := m.Topic()
	m.logger.Info("config manager listening", "topic", topic)
	return sub.Subscribe(topic, m.handleMessage)
}

func (m *Manager) handleMessage(msg Message) {
	requestID := logger.GenerateRequestID()
	log := m.logger.With("request_id", requestID)

	m.mu.Lock()
	if bytes.Equal(m.lastPayload, msg.Payload) {
		m.mu.Unlock()
		log.Info("received identical configuration, skipping reload")
		return
	}
	m.lastPayload = append([]byte(nil), msg.Payload...)
	m.mu.Unlock()

	log.Info("received remote configuration update")

	sanitized, err := sanitizeForPersistence(msg.Payload)
	if err != nil {
		log.Error("failed to sanitize configuration payload", "error", err)
		sanitized = msg.Payload
	}
	if err := m.persist(log, sanitized); err != nil {
		log.Error("failed to persist configuration", "error", err)
	}

	ctx := context.Background()
	m.handleReload(ctx, log, msg.Payload)
}

func (m *Manager) persist(log *slog.Logger, payload []byte) error {
	path := filepath.Join(m.configDir, "last_known.json")
	if err := os.MkdirAll(m.configDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write last_known.json: %w", err)
	}
	log.Info("configuration saved", "path", path)
	return nil
}

// handleReload parses payload into an AgentConfig and swaps in the
// automations, tag repository rows, and device actors it describes.
// Automation-map replacement is atomic (Engine.ReloadFromTags takes the
// engine's mutex for the whole swap); device and repository updates are
// not, brief acquisition gaps during the swap are acceptable.
func (m *Manager) handleReload(ctx context.Context, log *slog.Logger, payload []byte) {
	log.Info("initiating hot reload")

	var cfg AgentConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		log.Error("failed to parse configuration for reload", "error", err)
		if m.metrics != nil {
			m.metrics.ConfigReloadTotal.WithLabelValues("parse_error").Inc()
		}
		return
	}

	tags := make([]*domain.Tag, 0, len(cfg.Tags))
	for _, tc := range cfg.Tags {
		tag, err := tc.ToDomainTag()
		if err != nil {
			log.Error("skipping tag with invalid id", "tag_id", tc.ID, "error", err)
			continue
		}
		tags = append(tags, tag)
	}

	m.automation.ReloadFromTags(tags)

	m.syncRepository(ctx, tags)

	storedTags, err := m.repository.FindAll(ctx)
	if err != nil {
		log.Error("failed to load tags from repository after reload", "error", err)
		storedTags = tags
	}

	m.devices.StopAll()
	m.devices.StartDevices(ctx, cfg.ToDomainDevices(), storedTags)

	if m.metrics != nil {
		m.metrics.ConfigReloadTotal.WithLabelValues("success").Inc()
		m.reloadCount++
		m.metrics.ConfigReloadVersion.Set(m.reloadCount)
	}
	log.Info("hot reload complete", "tag_count", len(storedTags))
}

// syncRepository upserts every tag in the new config and deletes any tag
// the repository still has that the new config no longer lists.
func (m *Manager) syncRepository(ctx context.Context, tags []*domain.Tag) {
	wanted := make(map[domain.TagID]struct{}, len(tags))
	for _, tag := range tags {
		wanted[tag.ID()] = struct{}{}
		if err := m.repository.Save(ctx, tag); err != nil {
			m.logger.Error("failed to save tag", "tag_id", tag.ID(), "error", err)
		}
	}

	existing, err := m.repository.FindAll(ctx)
	if err != nil {
		m.logger.Error("failed to list existing tags for deletion sweep", "error", err)
		return
	}
	for _, tag := range existing {
		if _, ok := wanted[tag.ID()]; ok {
			continue
		}
		m.logger.Info("removing deleted tag", "tag_id", tag.ID())
		if err := m.repository.Delete(ctx, tag.ID()); err != nil {
			m.logger.Error("failed to delete tag", "tag_id", tag.ID(), "error", err)
		}
	}
}
