// Package config loads, validates, and hot-reloads the edge agent's
// AgentConfig: the layered file/env/flag configuration the agent starts
// with, and the wire schema a ConfigManager applies at runtime when the
// central server pushes an update. Ported from
// original_source/crates/infrastructure/src/config.rs and
// edge-agent/src/config_manager.rs.
package config

import (
	"encoding/json"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

const defaultHeartbeatIntervalSecs = 30

// MqttConfig is the broker connection the agent dials on startup. It is
// never persisted back into last_known.json — ConfigManager strips it
// before writing, since connectivity settings are authoritative locally.
type MqttConfig struct {
	Host        string `mapstructure:"host" json:"host" yaml:"host" validate:"required"`
	Port        uint16 `mapstructure:"port" json:"port" yaml:"port" validate:"required"`
	StatusTopic string `mapstructure:"status_topic" json:"status_topic,omitempty" yaml:"status_topic,omitempty"`
	ClientID    string `mapstructure:"client_id" json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Username    string `mapstructure:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Password    string `mapstructure:"password" json:"password,omitempty" yaml:"password,omitempty"`
}

// PrinterConfig selects and addresses the printer transport. A
// `"printer": null` in an incoming remote update means "use the local
// default": it is stripped from the copy persisted to last_known.json, so
// a later cold start keeps the local printer section rather than
// disabling printing outright.
type PrinterConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Host    string `mapstructure:"host" json:"host"`
	Port    uint16 `mapstructure:"port" json:"port"`
	Type    string `mapstructure:"type" json:"type,omitempty"`
	Path    string `mapstructure:"path" json:"path,omitempty"`
}

// DefaultPrinterConfig mirrors infrastructure/src/config.rs's
// default_printer_* functions.
func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{Enabled: false, Host: "127.0.0.1", Port: 9100}
}

// TagConfig is the wire shape of one tag entry inside an AgentConfig
// payload, converted to a domain.Tag by ToDomainTag.
type TagConfig struct {
	ID           string                `mapstructure:"id" json:"id" validate:"required,max=100"`
	Driver       domain.DriverType     `mapstructure:"driver" json:"driver" validate:"required"`
	DriverConfig json.RawMessage       `mapstructure:"driver_config" json:"driver_config,omitempty"`
	DeviceID     string                `mapstructure:"device_id" json:"device_id,omitempty"`
	UpdateMode   *domain.UpdateMode    `mapstructure:"update_mode" json:"update_mode,omitempty"`
	ValueType    domain.TagValueType   `mapstructure:"value_type" json:"value_type,omitempty"`
	ValueSchema  any                   `mapstructure:"value_schema" json:"value_schema,omitempty"`
	Enabled      *bool                 `mapstructure:"enabled" json:"enabled,omitempty"`
	Pipeline     *domain.PipelineConfig `mapstructure:"pipeline" json:"pipeline,omitempty"`
}

// ToDomainTag constructs the runtime domain.Tag this entry describes,
// defaulting UpdateMode to a 1-second poll and ValueType to Simple when
// the payload omits them, matching config_manager.rs's
// convert_config_to_tag.
func (c TagConfig) ToDomainTag() (*domain.Tag, error) {
	id, err := domain.NewTagID(c.ID)
	if err != nil {
		return nil, err
	}

	updateMode := domain.NewPollingMode(1000)
	if c.UpdateMode != nil {
		updateMode = *c.UpdateMode
	}

	valueType := domain.ValueTypeSimple
	if c.ValueType != "" {
		valueType = c.ValueType
	}

	var pipeline domain.PipelineConfig
	if c.Pipeline != nil {
		pipeline = *c.Pipeline
	}

	var sourceConfig any
	if len(c.DriverConfig) > 0 {
		if err := json.Unmarshal(c.DriverConfig, &sourceConfig); err != nil {
			return nil, err
		}
	}

	tag := domain.NewTag(id, c.DeviceID, sourceConfig, updateMode, valueType, pipeline)
	if c.ValueSchema != nil {
		tag.SetValueSchema(c.ValueSchema)
	}
	if c.Enabled != nil && !*c.Enabled {
		tag.Disable()
	}
	return tag, nil
}

// DeviceConfig is the wire shape of one physical link a tag can be bound
// to via TagConfig.DeviceID, converted to a domain.Device by
// ToDomainDevice. Tracked as a first-class entity per spec.md §3's Device
// data model (connection_config/driver_kind/enabled), distinct from
// original_source's config.rs, which never separated devices from tags.
type DeviceConfig struct {
	ID               string            `mapstructure:"id" json:"id" validate:"required"`
	DriverKind       domain.DriverType `mapstructure:"driver_kind" json:"driver_kind" validate:"required"`
	ConnectionConfig json.RawMessage   `mapstructure:"connection_config" json:"connection_config,omitempty"`
	Enabled          bool              `mapstructure:"enabled" json:"enabled"`
}

// ToDomainDevice constructs the domain.Device this entry describes.
func (c DeviceConfig) ToDomainDevice() domain.Device {
	return domain.NewDevice(c.ID, c.DriverKind, c.ConnectionConfig, c.Enabled)
}

// AgentConfig is the full configuration schema: the file the agent boots
// from, and the payload ConfigManager hot-reloads from the broker.
type AgentConfig struct {
	AgentID               string         `mapstructure:"agent_id" json:"agent_id" yaml:"agent_id" validate:"required"`
	MQTT                  MqttConfig     `mapstructure:"mqtt" json:"mqtt" yaml:"mqtt" validate:"required"`
	Printer               *PrinterConfig `mapstructure:"printer" json:"printer,omitempty" yaml:"printer,omitempty"`
	Devices               []DeviceConfig `mapstructure:"devices" json:"devices,omitempty" yaml:"devices,omitempty"`
	Tags                  []TagConfig    `mapstructure:"tags" json:"tags,omitempty" yaml:"tags,omitempty"`
	HeartbeatIntervalSecs uint64         `mapstructure:"heartbeat_interval_secs" json:"heartbeat_interval_secs,omitempty" yaml:"heartbeat_interval_secs,omitempty"`
	ConfigDir             string         `mapstructure:"-" json:"-" yaml:"-"`
}

// ToDomainDevices converts every DeviceConfig entry.
func (c AgentConfig) ToDomainDevices() []domain.Device {
	devices := make([]domain.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		devices = append(devices, d.ToDomainDevice())
	}
	return devices
}

// EffectiveHeartbeatInterval returns HeartbeatIntervalSecs, defaulting to
// 30 when the payload left it zero.
func (c AgentConfig) EffectiveHeartbeatInterval() uint64 {
	if c.HeartbeatIntervalSecs == 0 {
		return defaultHeartbeatIntervalSecs
	}
	return c.HeartbeatIntervalSecs
}

// EffectivePrinter returns Printer, falling back to DefaultPrinterConfig
// when the agent has none configured.
func (c AgentConfig) EffectivePrinter() PrinterConfig {
	if c.Printer == nil {
		return DefaultPrinterConfig()
	}
	return *c.Printer
}
