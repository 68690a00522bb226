// Package modbus implements Modbus RTU drivers over a shared serial
// transport registry: multiple tags or devices addressing different slave
// IDs on the same physical port multiplex onto a single open connection.
package modbus

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// Config configures a single-tag Modbus RTU connection.
type Config struct {
	Port      string `json:"port" mapstructure:"port"`
	BaudRate  uint32 `json:"baud_rate,omitempty" mapstructure:"baud_rate"`
	DataBits  uint8  `json:"data_bits,omitempty" mapstructure:"data_bits"`
	Parity    string `json:"parity,omitempty" mapstructure:"parity"`
	StopBits  uint8  `json:"stop_bits,omitempty" mapstructure:"stop_bits"`
	TimeoutMS uint64 `json:"timeout_ms,omitempty" mapstructure:"timeout_ms"`

	SlaveID      byte   `json:"slave_id" mapstructure:"slave_id"`
	Address      uint16 `json:"address" mapstructure:"address"`
	Count        uint16 `json:"count,omitempty" mapstructure:"count"`
	RegisterType string `json:"register_type,omitempty" mapstructure:"register_type"` // Holding, Input, Coil, Discrete
}

func (c *Config) applyDefaults() {
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
	if c.Count == 0 {
		c.Count = 1
	}
	if c.RegisterType == "" {
		c.RegisterType = "Holding"
	}
}

func normalizedPortName(port string) string {
	if runtime.GOOS == "windows" && !strings.HasPrefix(strings.ToUpper(port), `\\.\`) {
		return `\\.\` + port
	}
	return port
}

// openOSTransport opens the serial device node directly, mirroring the
// rs232 package's PortOpener: no Modbus/serial transport library appears in
// the reference corpus, so the shared registry multiplexes a raw OS file
// handle instead of a vendor driver's connection handle.
func openOSTransport(name string) (Transport, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// TransportOpener is injected by tests to avoid touching real hardware.
type TransportOpener func(name string) (Transport, error)

// Connection is a domain.DriverConnection over a single Modbus register/coil.
type Connection struct {
	cfg     Config
	opener  TransportOpener
	portKey string

	mu     sync.Mutex
	handle *portHandle
	state  domain.ConnectionState
}

// New constructs a Connection using the real OS transport opener.
func New(cfg Config) *Connection {
	return NewWithOpener(cfg, openOSTransport)
}

// NewWithOpener constructs a Connection with an injectable TransportOpener.
func NewWithOpener(cfg Config, opener TransportOpener) *Connection {
	cfg.applyDefaults()
	return &Connection{cfg: cfg, opener: opener, state: domain.StateDisconnected}
}

func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = domain.StateConnecting
	key := normalizedPortKey(c.cfg.Port)
	portName := normalizedPortName(c.cfg.Port)

	h, err := acquirePort(key, func() (Transport, error) { return c.opener(portName) })
	if err != nil {
		c.state = domain.StateFailed
		return fmt.Errorf("%w: failed to open serial port %s: %v", domain.ErrDriverError, portName, err)
	}

	c.handle = h
	c.portKey = key
	c.state = domain.StateConnected
	return nil
}

func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		releasePort(c.portKey)
		c.handle = nil
	}
	c.state = domain.StateDisconnected
	return nil
}

func (c *Connection) newClient() (*client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return nil, fmt.Errorf("%w: not connected", domain.ErrDriverError)
	}
	return &client{handle: c.handle, slaveID: c.cfg.SlaveID, timeout: time.Duration(c.cfg.TimeoutMS) * time.Millisecond}, nil
}

func (c *Connection) ReadValue(ctx context.Context) (any, error) {
	cl, err := c.newClient()
	if err != nil {
		return nil, err
	}

	val, err := readRegisterType(cl, c.cfg.RegisterType, c.cfg.Address, c.cfg.Count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDriverError, err)
	}
	return val, nil
}

func (c *Connection) WriteValue(ctx context.Context, value any) error {
	cl, err := c.newClient()
	if err != nil {
		return err
	}
	return writeRegisterType(cl, c.cfg.RegisterType, c.cfg.Address, value)
}

func writeRegisterType(cl *client, registerType string, addr uint16, value any) error {
	switch registerType {
	case "Holding":
		switch v := value.(type) {
		case []uint16:
			return cl.writeMultipleRegisters(addr, v)
		case []any:
			words := make([]uint16, len(v))
			for i, item := range v {
				words[i] = toUint16(item)
			}
			return cl.writeMultipleRegisters(addr, words)
		default:
			n, ok := toNumber(value)
			if !ok {
				return fmt.Errorf("%w: value must be a number or array of numbers for holding registers", domain.ErrInvalidValue)
			}
			return cl.writeSingleRegister(addr, uint16(n))
		}
	case "Coil":
		if b, ok := value.(bool); ok {
			return cl.writeSingleCoil(addr, b)
		}
		if n, ok := toNumber(value); ok {
			return cl.writeSingleCoil(addr, n > 0)
		}
		return fmt.Errorf("%w: value must be boolean for coil", domain.ErrInvalidValue)
	default:
		return fmt.Errorf("%w: write not supported for register type %s", domain.ErrDriverError, registerType)
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	default:
		return 0, false
	}
}

func toUint16(v any) uint16 {
	n, _ := toNumber(v)
	return uint16(n)
}

func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

func (c *Connection) ConnectionState() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) DriverType() string {
	return string(domain.DriverModbus)
}
