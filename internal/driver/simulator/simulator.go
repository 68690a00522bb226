// Package simulator implements a synthetic Connection used for demos and
// integration tests: it produces a sine-wave reading without any physical
// transport, in the wire shape a Mettler Toledo style scale would emit.
package simulator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// Config configures the simulated signal.
type Config struct {
	MinValue   float64 `json:"min_value" mapstructure:"min_value"`
	MaxValue   float64 `json:"max_value" mapstructure:"max_value"`
	IntervalMS uint64  `json:"interval_ms" mapstructure:"interval_ms"`
	Unit       string  `json:"unit" mapstructure:"unit"`
	Pattern    string  `json:"pattern,omitempty" mapstructure:"pattern"`
}

const frequencyHz = 0.1 // one full cycle every 10 seconds

// Connection is a domain.DriverConnection that generates a sine wave between
// Config.MinValue and Config.MaxValue.
type Connection struct {
	cfg          Config
	startTime    time.Time
	lastReadTime time.Time
}

// New constructs a simulator connection. It never fails: Connect is
// instantaneous and the generator has no external dependency.
func New(cfg Config) *Connection {
	now := time.Now()
	return &Connection{cfg: cfg, startTime: now, lastReadTime: now}
}

func (c *Connection) Connect(ctx context.Context) error {
	return nil
}

func (c *Connection) Disconnect(ctx context.Context) error {
	return nil
}

func (c *Connection) generateCurrentValue() string {
	elapsed := time.Since(c.startTime).Seconds()

	rng := c.cfg.MaxValue - c.cfg.MinValue
	midpoint := c.cfg.MinValue + rng/2
	amplitude := rng / 2

	raw := midpoint + amplitude*math.Sin(elapsed*frequencyHz*2*math.Pi)
	value := math.Round(raw*100) / 100

	if c.cfg.Pattern != "" {
		return strings.ReplaceAll(c.cfg.Pattern, "{}", fmt.Sprintf("%.2f", value))
	}

	return fmt.Sprintf("ST,GS,  %.2f%s", value, c.cfg.Unit)
}

// ReadValue blocks until Config.IntervalMS has elapsed since the previous
// read, then returns the next generated frame as a raw string value.
func (c *Connection) ReadValue(ctx context.Context) (any, error) {
	now := time.Now()
	nextReadTime := c.lastReadTime.Add(time.Duration(c.cfg.IntervalMS) * time.Millisecond)

	if nextReadTime.After(now) {
		select {
		case <-time.After(nextReadTime.Sub(now)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.lastReadTime = time.Now()
	return c.generateCurrentValue(), nil
}

func (c *Connection) WriteValue(ctx context.Context, value any) error {
	return nil
}

func (c *Connection) IsConnected() bool {
	return true
}

func (c *Connection) ConnectionState() domain.ConnectionState {
	return domain.StateConnected
}

func (c *Connection) DriverType() string {
	return string(domain.DriverSimulator)
}
