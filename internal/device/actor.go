// Package device runs one DeviceActor per physical connection, batch-polling
// every tag bound to it through a single domain.DeviceDriver and fanning
// results out through the pipeline each tag configured.
package device

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/pipeline"
)

const defaultPollIntervalMS = 1000

// Actor manages the lifecycle of a single Device: connect, reconnect on
// failure, and a poll loop that pushes each cycle's batch of readings
// through per-tag pipelines before publishing value-updated events.
type Actor struct {
	device    domain.Device
	driver    domain.DeviceDriver
	tags      []*domain.Tag
	publisher domain.EventPublisher
	pipelines map[domain.TagID]*pipeline.TagPipeline
	logger    *slog.Logger
}

// NewActor constructs an Actor. A TagPipeline is built for every tag from
// its own PipelineConfig, same as the original source's DeviceActor::new.
func NewActor(device domain.Device, driver domain.DeviceDriver, tags []*domain.Tag, publisher domain.EventPublisher, logger *slog.Logger) *Actor {
	if logger == nil {
		logger = slog.Default()
	}
	pipelines := make(map[domain.TagID]*pipeline.TagPipeline, len(tags))
	for _, tag := range tags {
		pipelines[tag.ID()] = pipeline.NewTagPipeline(tag.ID(), tag.PipelineConfig(), logger)
	}
	return &Actor{
		device:    device,
		driver:    driver,
		tags:      tags,
		publisher: publisher,
		pipelines: pipelines,
		logger:    logger,
	}
}

// pollIntervalMillis is the fastest Polling/PollingOnChange interval any
// bound tag asks for, defaulting to defaultPollIntervalMS when none do
// (e.g. every tag is OnChange, which a batch driver still has to poll for).
func (a *Actor) pollIntervalMillis() uint64 {
	var min uint64
	for _, tag := range a.tags {
		mode := tag.UpdateMode()
		var interval uint64
		switch mode.Kind {
		case domain.UpdateModePolling, domain.UpdateModePollingOnChange:
			interval = mode.IntervalMS
		default:
			continue
		}
		if min == 0 || interval < min {
			min = interval
		}
	}
	if min == 0 {
		return defaultPollIntervalMS
	}
	return min
}

func (a *Actor) tagByID(id domain.TagID) *domain.Tag {
	for _, t := range a.tags {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

// Run connects the driver and polls it on a timer until ctx is cancelled.
// It never returns an error: a failed initial connect, a failed poll, or a
// dropped driver are all logged and retried on the next tick, matching the
// original source's tolerant DeviceActor::run.
func (a *Actor) Run(ctx context.Context) {
	a.logger.Info("starting device actor", "device_id", a.device.ID)

	if err := a.driver.Connect(ctx); err != nil {
		a.logger.Error("failed initial device connection", "device_id", a.device.ID, "error", err)
	}

	intervalMS := a.pollIntervalMillis()
	a.logger.Info("starting device poll loop", "device_id", a.device.ID, "interval_ms", intervalMS)
	ticker := time.NewTicker(time.Duration(intervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("device actor shutdown signal received", "device_id", a.device.ID)
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *Actor) tick(ctx context.Context) {
	if !a.driver.IsConnected() {
		if err := a.driver.Connect(ctx); err != nil {
			a.logger.Warn("failed to reconnect device", "device_id", a.device.ID, "error", err)
			return
		}
		a.logger.Info("device reconnected", "device_id", a.device.ID)
	}

	readings, err := a.driver.Poll(ctx)
	if err != nil {
		a.logger.Error("batch poll failed", "device_id", a.device.ID, "error", err)
		_ = a.driver.Disconnect(ctx)
		return
	}

	for _, reading := range readings {
		tag := a.tagByID(reading.TagID)
		if tag == nil {
			continue
		}
		if reading.Err != nil {
			a.logger.Warn("read failed", "tag_id", reading.TagID, "error", reading.Err)
			tag.UpdateValue(nil, domain.QualityBad)
			a.publish(ctx, domain.NewTagValueUpdatedEvent(tag.ID(), nil, domain.QualityBad))
			continue
		}
		a.processReading(ctx, tag, reading.Value)
	}
}

// processReading unwraps Modbus-style single-element array readings, runs
// the tag's pipeline, and publishes the result if the pipeline didn't
// discard it. A PollingOnChange tag's numeric value is only published when
// it moved by at least ChangeThreshold since the last published value.
func (a *Actor) processReading(ctx context.Context, tag *domain.Tag, raw any) {
	processed := unwrapSingleElement(raw)

	finalValue := processed
	shouldUpdate := true

	if pipe, ok := a.pipelines[tag.ID()]; ok {
		v, ok, err := pipe.Process(processed)
		if err != nil {
			a.logger.Warn("pipeline processing error", "tag_id", tag.ID(), "error", err)
			shouldUpdate = false
		} else if !ok {
			shouldUpdate = false
		} else {
			finalValue = v
		}
	}

	if !shouldUpdate {
		return
	}

	if mode := tag.UpdateMode(); mode.Kind == domain.UpdateModePollingOnChange {
		prev, prevOK := tag.LastValue().(float64)
		cur, curOK := finalValue.(float64)
		if prevOK && curOK && math.Abs(cur-prev) < mode.ChangeThreshold {
			return
		}
	}

	tag.UpdateValue(finalValue, domain.QualityGood)
	a.publish(ctx, domain.NewTagValueUpdatedEvent(tag.ID(), finalValue, domain.QualityGood))
}

func unwrapSingleElement(raw any) any {
	switch v := raw.(type) {
	case []uint16:
		if len(v) == 1 {
			return float64(v[0])
		}
	case []bool:
		if len(v) == 1 {
			return v[0]
		}
	case []any:
		if len(v) == 1 {
			return v[0]
		}
	}
	return raw
}

func (a *Actor) publish(ctx context.Context, event domain.DomainEvent) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Warn("failed to publish event", "error", err)
	}
}
