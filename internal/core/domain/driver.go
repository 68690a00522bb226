package domain

import "context"

// DriverType identifies which concrete implementation backs a configured
// device: RS-232, Modbus RTU, OPC-UA, HTTP, or the built-in simulator.
type DriverType string

const (
	DriverRS232     DriverType = "RS232"
	DriverModbus    DriverType = "Modbus"
	DriverOPCUA     DriverType = "OPC-UA"
	DriverHTTP      DriverType = "HTTP"
	DriverSimulator DriverType = "Simulator"
)

func (t DriverType) String() string { return string(t) }

// DriverConnection is implemented by single-value streaming drivers
// (RS-232, simulator): one physical link produces a stream of raw readings
// for one logical tag.
type DriverConnection interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// ReadValue returns the next raw reading, or nil if none is available
	// yet without blocking the caller's polling loop.
	ReadValue(ctx context.Context) (any, error)

	WriteValue(ctx context.Context, value any) error

	IsConnected() bool
	ConnectionState() ConnectionState
	DriverType() string
}

// DeviceDriver is implemented by batch/multi-tag drivers (Modbus RTU): one
// physical link is polled once per cycle and yields readings for every tag
// mapped to it.
type DeviceDriver interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	IsConnected() bool
	ConnectionState() ConnectionState

	// Poll reads every configured tag in one call. A per-tag error
	// does not abort the batch; it is carried alongside that tag's result.
	Poll(ctx context.Context) ([]TagReading, error)

	Write(ctx context.Context, tagID TagID, value any) error
}

// TagReading is one entry of a DeviceDriver.Poll result.
type TagReading struct {
	TagID TagID
	Value any
	Err   error
}
