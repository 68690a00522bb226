// Package factory dispatches a Device's driver kind and connection config
// into a concrete domain.DriverConnection.
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/driver/modbus"
	"github.com/ifa-automation/scada-edge-agent/internal/driver/rs232"
	"github.com/ifa-automation/scada-edge-agent/internal/driver/simulator"
)

// CreateDriver constructs the domain.DriverConnection for driverType from
// raw, driver-specific JSON configuration. OPC-UA and HTTP are recognized
// DriverType values but are not implemented by any concrete connection yet.
func CreateDriver(driverType domain.DriverType, config json.RawMessage) (domain.DriverConnection, error) {
	switch driverType {
	case domain.DriverRS232:
		var cfg rs232.Config
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("%w: invalid RS232 config: %v", domain.ErrInvalidDriverConfig, err)
		}
		if cfg.Port == "" {
			return nil, fmt.Errorf("%w: invalid RS232 config: missing port", domain.ErrInvalidDriverConfig)
		}
		return rs232.New(cfg), nil

	case domain.DriverSimulator:
		var cfg simulator.Config
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("%w: invalid simulator config: %v", domain.ErrInvalidDriverConfig, err)
		}
		if cfg.Unit == "" && cfg.MaxValue == 0 && cfg.MinValue == 0 && cfg.IntervalMS == 0 {
			return nil, fmt.Errorf("%w: invalid simulator config: missing required fields", domain.ErrInvalidDriverConfig)
		}
		return simulator.New(cfg), nil

	case domain.DriverModbus:
		var cfg modbus.Config
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("%w: invalid Modbus config: %v", domain.ErrInvalidDriverConfig, err)
		}
		if cfg.Port == "" {
			return nil, fmt.Errorf("%w: invalid Modbus config: missing port", domain.ErrInvalidDriverConfig)
		}
		return modbus.New(cfg), nil

	case domain.DriverOPCUA:
		return nil, fmt.Errorf("%w: OPC-UA driver not yet implemented", domain.ErrInvalidDriverConfig)

	case domain.DriverHTTP:
		return nil, fmt.Errorf("%w: HTTP driver not yet implemented", domain.ErrInvalidDriverConfig)

	default:
		return nil, fmt.Errorf("%w: unknown driver type %q", domain.ErrInvalidDriverConfig, driverType)
	}
}

// CreateDeviceDriver builds the batch, device-scoped driver for a Device
// and the tags bound to it: one physical link, polled once per cycle,
// fanning its readings out across every tag. OPC-UA and HTTP have no
// driver here: both return ErrInvalidDriverConfig, as they do from
// CreateDriver.
func CreateDeviceDriver(device domain.Device, tags []*domain.Tag) (domain.DeviceDriver, error) {
	switch device.Driver {
	case domain.DriverRS232:
		var cfg rs232.Config
		if err := json.Unmarshal(device.ConnectionConfig, &cfg); err != nil {
			return nil, fmt.Errorf("%w: invalid RS232 device config: %v", domain.ErrInvalidDriverConfig, err)
		}
		if cfg.Port == "" {
			return nil, fmt.Errorf("%w: invalid RS232 device config: missing port", domain.ErrInvalidDriverConfig)
		}
		return rs232.NewDeviceDriver(cfg, tags), nil

	case domain.DriverSimulator:
		return simulator.NewDeviceDriver(tags), nil

	case domain.DriverModbus:
		var cfg modbus.DeviceConfig
		if err := json.Unmarshal(device.ConnectionConfig, &cfg); err != nil {
			return nil, fmt.Errorf("%w: invalid Modbus device config: %v", domain.ErrInvalidDriverConfig, err)
		}
		if cfg.Port == "" {
			return nil, fmt.Errorf("%w: invalid Modbus device config: missing port", domain.ErrInvalidDriverConfig)
		}
		return modbus.NewDeviceDriver(cfg, tags), nil

	default:
		return nil, fmt.Errorf("%w: no batch device driver for type %q", domain.ErrInvalidDriverConfig, device.Driver)
	}
}
