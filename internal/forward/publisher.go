// Package forward implements store-and-forward delivery: a domain.EventPublisher
// that tries to publish over MQTT immediately, falling back to a durable
// SQLite-backed queue when the broker is unreachable, and a background
// flusher that drains the queue once connectivity returns. Ported from
// original_source/crates/infrastructure/src/messaging/buffered_publisher.rs.
package forward

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/metrics"
	"github.com/ifa-automation/scada-edge-agent/internal/storage/sqlite"
)

const (
	flushInterval = 5 * time.Second
	flushBatch    = 50
)

// PublisherClient is the narrow surface Publisher needs from a broker
// connection: publish bytes and report connectivity. Satisfied by
// *broker.Client; a seam for tests, matching MqttPublisherClient in
// mqtt_client.rs.
type PublisherClient interface {
	PublishBytes(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error
	IsConnected() bool
}

type reportPayload struct {
	ReportID  string              `json:"report_id"`
	Timestamp time.Time           `json:"timestamp"`
	Items     []domain.ReportItem `json:"items"`
}

type tagValuePayload struct {
	TagID     string `json:"tag_id"`
	Value     any    `json:"val"`
	Timestamp int64  `json:"ts"`
	Quality   string `json:"q"`
}

type heartbeatPayload struct {
	Uptime uint64   `json:"uptime"`
	Tags   int      `json:"tags"`
	TagIDs []string `json:"tag_ids"`
	Ts     int64    `json:"ts"`
}

// Publisher is a domain.EventPublisher that buffers TagValueUpdated and
// ReportCompleted events when the MQTT client is offline, and best-effort
// publishes (never buffers) AgentHeartbeat — heartbeats are ephemeral, so
// replaying a stale one on reconnect would only spam the broker.
type Publisher struct {
	client  PublisherClient
	buffer  *sqlite.Buffer
	agentID string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// SetMetrics attaches a Metrics instance the publisher records publish
// outcomes and buffer depth to. Optional: a Publisher with no Metrics set
// behaves exactly as before.
func (p *Publisher) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// NewPublisher constructs a Publisher and starts its background flusher
// goroutine under ctx.
func NewPublisher(ctx context.Context, client PublisherClient, buffer *sqlite.Buffer, agentID string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{client: client, buffer: buffer, agentID: agentID, logger: logger}
	go p.runFlusher(ctx)
	return p
}

// Publish implements domain.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	topic, payload, ok := p.createPayload(event)
	if !ok {
		if event.Type == domain.EventAgentHeartbeat {
			p.publishHeartbeatBestEffort(ctx, event)
		}
		return nil
	}

	if !p.client.IsConnected() {
		p.logger.Warn("mqtt client offline, buffering event", "topic", topic)
		p.recordPublishOutcome("buffered_offline")
		return p.buffer.Enqueue(ctx, topic, payload)
	}

	if err := p.client.PublishBytes(ctx, topic, payload, 1, false); err != nil {
		p.logger.Warn("mqtt publish failed, buffering event", "topic", topic, "error", err)
		p.recordPublishOutcome("buffered_failure")
		return p.buffer.Enqueue(ctx, topic, payload)
	}
	p.recordPublishOutcome("success")
	return nil
}

func (p *Publisher) recordPublishOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.PublishTotal.WithLabelValues(outcome).Inc()
	}
}

func (p *Publisher) createPayload(event domain.DomainEvent) (string, []byte, bool) {
	switch event.Type {
	case domain.EventTagValueUpdated:
		topic := fmt.Sprintf("scada/data/%s", p.agentID)
		payload, err := json.Marshal([]tagValuePayload{{
			TagID:     event.TagID.String(),
			Value:     event.Value,
			Timestamp: event.Timestamp.UnixMilli(),
			Quality:   event.Quality.String(),
		}})
		if err != nil {
			p.logger.Error("failed to marshal tag value payload", "error", err)
			return "", nil, false
		}
		return topic, payload, true
	case domain.EventReportCompleted:
		topic := fmt.Sprintf("scada/reports/%s", p.agentID)
		payload, err := json.Marshal(reportPayload{
			ReportID:  event.ReportID,
			Timestamp: event.Timestamp,
			Items:     event.Items,
		})
		if err != nil {
			p.logger.Error("failed to marshal report payload", "error", err)
			return "", nil, false
		}
		return topic, payload, true
	default:
		return "", nil, false
	}
}

func (p *Publisher) publishHeartbeatBestEffort(ctx context.Context, event domain.DomainEvent) {
	topic := fmt.Sprintf("scada/health/%s", event.AgentID)
	payload, err := json.Marshal(heartbeatPayload{
		Uptime: event.UptimeSecs,
		Tags:   event.ActiveTags,
		TagIDs: event.ActiveTagIDs,
		Ts:     event.Timestamp.UnixMilli(),
	})
	if err != nil {
		p.logger.Error("failed to marshal heartbeat payload", "error", err)
		return
	}
	_ = p.client.PublishBytes(ctx, topic, payload, 0, false)
}

// runFlusher periodically drains the offline buffer once the MQTT client
// is connected again, matching BufferedMqttPublisher::start_flusher.
func (p *Publisher) runFlusher(ctx context.Context) {
	p.logger.Info("starting buffer flusher")
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flushOnce(ctx)
		}
	}
}

func (p *Publisher) flushOnce(ctx context.Context) {
	if !p.client.IsConnected() {
		return
	}

	count, err := p.buffer.Count(ctx)
	if err != nil {
		p.logger.Error("failed to check buffer count", "error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.ForwardBufferDepth.Set(float64(count))
	}
	if count == 0 {
		return
	}

	batch, err := p.buffer.DequeueBatch(ctx, flushBatch)
	if err != nil {
		p.logger.Error("failed to dequeue batch", "error", err)
		return
	}
	if len(batch) == 0 {
		return
	}

	p.logger.Info("flushing buffered events", "count", len(batch))
	for _, ev := range batch {
		if err := p.client.PublishBytes(ctx, ev.Topic, ev.Payload, 1, false); err != nil {
			p.logger.Warn("flusher paused, mqtt publish failed", "error", err)
			return
		}
		if err := p.buffer.Delete(ctx, ev.ID); err != nil {
			p.logger.Error("failed to delete forwarded event", "id", ev.ID, "error", err)
		}
	}
}
