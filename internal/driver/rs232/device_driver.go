package rs232

import (
	"context"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// DeviceDriver is a domain.DeviceDriver that reads one frame per poll from a
// shared serial port and broadcasts it to every tag bound to the device:
// the wire protocol has no per-tag addressing of its own, so all tags on
// the port see the same reading, same as the original source's
// RS232DeviceDriver.
type DeviceDriver struct {
	cfg    Config
	opener PortOpener
	tags   []*domain.Tag

	conn *Connection
}

// NewDeviceDriver constructs a batch DeviceDriver using the real OS port
// opener.
func NewDeviceDriver(cfg Config, tags []*domain.Tag) *DeviceDriver {
	return NewDeviceDriverWithOpener(cfg, tags, openOSPort)
}

// NewDeviceDriverWithOpener constructs a batch DeviceDriver with an
// injectable PortOpener, for tests.
func NewDeviceDriverWithOpener(cfg Config, tags []*domain.Tag, opener PortOpener) *DeviceDriver {
	return &DeviceDriver{cfg: cfg, tags: tags, opener: opener, conn: NewWithOpener(cfg, opener)}
}

func (d *DeviceDriver) Connect(ctx context.Context) error    { return d.conn.Connect(ctx) }
func (d *DeviceDriver) Disconnect(ctx context.Context) error { return d.conn.Disconnect(ctx) }
func (d *DeviceDriver) IsConnected() bool                    { return d.conn.IsConnected() }

func (d *DeviceDriver) ConnectionState() domain.ConnectionState { return d.conn.ConnectionState() }

// Poll reads one frame and assigns it, unchanged, to every tag bound to
// this device. An empty read (no data currently available) yields an
// empty batch rather than an error.
func (d *DeviceDriver) Poll(ctx context.Context) ([]domain.TagReading, error) {
	value, err := d.conn.ReadValue(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	results := make([]domain.TagReading, 0, len(d.tags))
	for _, tag := range d.tags {
		results = append(results, domain.TagReading{TagID: tag.ID(), Value: value})
	}
	return results, nil
}

// Write sends value to the shared port, matching the original source's
// RS232DeviceDriver.write, which ignores tagID since the port has no
// per-tag addressing.
func (d *DeviceDriver) Write(ctx context.Context, tagID domain.TagID, value any) error {
	return d.conn.WriteValue(ctx, value)
}
