package modbus

import (
	"context"
	"fmt"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// DeviceConfig configures a shared Modbus RTU port for batch polling: one
// slave address, many tags, each tag's own source_config naming its
// register/count/register_type.
type DeviceConfig struct {
	Port      string `json:"port" mapstructure:"port"`
	BaudRate  uint32 `json:"baud_rate,omitempty" mapstructure:"baud_rate"`
	DataBits  uint8  `json:"data_bits,omitempty" mapstructure:"data_bits"`
	Parity    string `json:"parity,omitempty" mapstructure:"parity"`
	StopBits  uint8  `json:"stop_bits,omitempty" mapstructure:"stop_bits"`
	TimeoutMS uint64 `json:"timeout_ms,omitempty" mapstructure:"timeout_ms"`
	SlaveID   byte   `json:"slave_id" mapstructure:"slave_id"`
}

func (c *DeviceConfig) applyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = 9600
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.Parity == "" {
		c.Parity = "None"
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 1000
	}
}

// DeviceDriver is a domain.DeviceDriver that polls every tag bound to one
// shared Modbus RTU port in one Poll call, issuing one request per tag and
// re-asserting the device's slave address before each tag's read.
type DeviceDriver struct {
	cfg     DeviceConfig
	opener  TransportOpener
	portKey string
	tags    []*domain.Tag

	handle *portHandle
	state  domain.ConnectionState
}

// NewDeviceDriver constructs a batch DeviceDriver using the real OS
// transport opener.
func NewDeviceDriver(cfg DeviceConfig, tags []*domain.Tag) *DeviceDriver {
	return NewDeviceDriverWithOpener(cfg, tags, openOSTransport)
}

// NewDeviceDriverWithOpener constructs a batch DeviceDriver with an
// injectable TransportOpener, for tests.
func NewDeviceDriverWithOpener(cfg DeviceConfig, tags []*domain.Tag, opener TransportOpener) *DeviceDriver {
	cfg.applyDefaults()
	return &DeviceDriver{cfg: cfg, tags: tags, opener: opener, state: domain.StateDisconnected}
}

func (d *DeviceDriver) Connect(ctx context.Context) error {
	d.state = domain.StateConnecting
	key := normalizedPortKey(d.cfg.Port)
	portName := normalizedPortName(d.cfg.Port)

	h, err := acquirePort(key, func() (Transport, error) { return d.opener(portName) })
	if err != nil {
		d.state = domain.StateFailed
		return fmt.Errorf("%w: failed to open serial port %s: %v", domain.ErrDriverError, portName, err)
	}

	d.handle = h
	d.portKey = key
	d.state = domain.StateConnected
	return nil
}

func (d *DeviceDriver) Disconnect(ctx context.Context) error {
	if d.handle != nil {
		releasePort(d.portKey)
		d.handle = nil
	}
	d.state = domain.StateDisconnected
	return nil
}

func (d *DeviceDriver) IsConnected() bool { return d.handle != nil }

func (d *DeviceDriver) ConnectionState() domain.ConnectionState { return d.state }

// Poll reads every tag's configured register in turn. A failure on one
// tag's read is carried in its TagReading.Err and does not abort the rest
// of the batch; only a missing connection aborts the whole poll.
func (d *DeviceDriver) Poll(ctx context.Context) ([]domain.TagReading, error) {
	if d.handle == nil {
		return nil, fmt.Errorf("%w: not connected", domain.ErrDriverError)
	}

	cl := &client{handle: d.handle, slaveID: d.cfg.SlaveID, timeout: time.Duration(d.cfg.TimeoutMS) * time.Millisecond}

	results := make([]domain.TagReading, 0, len(d.tags))
	for _, tag := range d.tags {
		cfg, ok := tag.SourceConfig().(map[string]any)
		if !ok {
			results = append(results, domain.TagReading{TagID: tag.ID(), Err: fmt.Errorf("%w: missing source_config", domain.ErrInvalidDriverConfig)})
			continue
		}

		addr, hasAddr := cfg["register"]
		if !hasAddr {
			results = append(results, domain.TagReading{TagID: tag.ID(), Err: fmt.Errorf("%w: missing 'register' in source_config", domain.ErrInvalidDriverConfig)})
			continue
		}

		count := uint16(1)
		if c, ok := cfg["count"]; ok {
			count = uint16(toFloat(c))
		}
		registerType := "Holding"
		if rt, ok := cfg["register_type"].(string); ok && rt != "" {
			registerType = rt
		}

		val, err := readRegisterType(cl, registerType, uint16(toFloat(addr)), count)
		if err != nil {
			results = append(results, domain.TagReading{TagID: tag.ID(), Err: fmt.Errorf("%w: %v", domain.ErrDriverError, err)})
			continue
		}
		results = append(results, domain.TagReading{TagID: tag.ID(), Value: val})
	}

	return results, nil
}

// Write is not implemented for batch Modbus polling, matching the original
// source's ModbusDeviceDriver stub.
func (d *DeviceDriver) Write(ctx context.Context, tagID domain.TagID, value any) error {
	return fmt.Errorf("%w: write not implemented for batch Modbus driver", domain.ErrDriverError)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
