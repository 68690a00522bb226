package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// DeviceDriver is a domain.DeviceDriver that generates one sine-wave
// reading per tag per poll, each tag carrying its own Config in
// SourceConfig. Unlike Connection, which tracks elapsed time from its own
// start, DeviceDriver phases the wave off wall-clock time (seconds since
// the Unix epoch) so that multiple tags sampled in the same poll, or a
// restarted agent, land on the same point of the curve — matching the
// original source's SimulatorDeviceDriver.
type DeviceDriver struct {
	tags  []*domain.Tag
	state domain.ConnectionState
}

// NewDeviceDriver constructs a batch simulator DeviceDriver for tags.
func NewDeviceDriver(tags []*domain.Tag) *DeviceDriver {
	return &DeviceDriver{tags: tags, state: domain.StateDisconnected}
}

func (d *DeviceDriver) Connect(ctx context.Context) error {
	d.state = domain.StateConnected
	return nil
}

func (d *DeviceDriver) Disconnect(ctx context.Context) error {
	d.state = domain.StateDisconnected
	return nil
}

func (d *DeviceDriver) IsConnected() bool { return d.state == domain.StateConnected }

func (d *DeviceDriver) ConnectionState() domain.ConnectionState { return d.state }

// Poll generates a fresh value for every tag. A tag whose source_config
// doesn't decode as a simulator Config is reported as a per-tag error
// without aborting the rest of the batch.
func (d *DeviceDriver) Poll(ctx context.Context) ([]domain.TagReading, error) {
	sinceEpoch := float64(time.Now().UnixNano()) / float64(time.Second)

	results := make([]domain.TagReading, 0, len(d.tags))
	for _, tag := range d.tags {
		cfg, err := decodeTagConfig(tag.SourceConfig())
		if err != nil {
			results = append(results, domain.TagReading{TagID: tag.ID(), Err: fmt.Errorf("%w: invalid simulator config for tag %s: %v", domain.ErrInvalidDriverConfig, tag.ID(), err)})
			continue
		}
		results = append(results, domain.TagReading{TagID: tag.ID(), Value: generateValue(cfg, sinceEpoch)})
	}
	return results, nil
}

func (d *DeviceDriver) Write(ctx context.Context, tagID domain.TagID, value any) error {
	return nil
}

func decodeTagConfig(sourceConfig any) (Config, error) {
	raw, err := json.Marshal(sourceConfig)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func generateValue(cfg Config, sinceEpoch float64) string {
	rng := cfg.MaxValue - cfg.MinValue
	midpoint := cfg.MinValue + rng/2
	amplitude := rng / 2

	raw := midpoint + amplitude*math.Sin(sinceEpoch*frequencyHz*2*math.Pi)
	value := math.Round(raw*100) / 100

	if cfg.Pattern != "" {
		return strings.ReplaceAll(cfg.Pattern, "{}", fmt.Sprintf("%.2f", value))
	}
	return fmt.Sprintf("ST,GS,  %.2f%s", value, cfg.Unit)
}
