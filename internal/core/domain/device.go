package domain

import "encoding/json"

// Device represents a physical connection (serial port, TCP socket,
// simulator) shared by one or more tags. A Device manages the connection,
// not the semantic meaning of the data flowing over it.
type Device struct {
	ID               string          `json:"id"`
	Driver           DriverType      `json:"driver"`
	ConnectionConfig json.RawMessage `json:"connection_config"`
	Enabled          bool            `json:"enabled"`
}

// NewDevice constructs a Device.
func NewDevice(id string, driverType DriverType, connectionConfig json.RawMessage, enabled bool) Device {
	return Device{ID: id, Driver: driverType, ConnectionConfig: connectionConfig, Enabled: enabled}
}
