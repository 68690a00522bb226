package printer

import (
	"context"
	"log/slog"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/metrics"
)

// Manager owns a single domain.PrinterConnection and serializes every
// print job through it, reconnecting between jobs as needed. Jobs are
// submitted over a buffered channel so callers (the automation engine's
// action executor) never block on physical printer I/O.
type Manager struct {
	conn              domain.PrinterConnection
	jobs              chan []byte
	reconnectInterval time.Duration
	logger            *slog.Logger
	metrics           *metrics.Metrics
}

// SetMetrics attaches a Metrics instance the manager records job outcomes
// to. Optional.
func (m *Manager) SetMetrics(mx *metrics.Metrics) {
	m.metrics = mx
}

func (m *Manager) recordJobOutcome(status string) {
	if m.metrics != nil {
		m.metrics.PrinterJobsTotal.WithLabelValues(status).Inc()
	}
}

// NewManager returns a Manager over conn with job queue capacity buffer.
func NewManager(conn domain.PrinterConnection, buffer int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		conn:              conn,
		jobs:              make(chan []byte, buffer),
		reconnectInterval: 5 * time.Second,
		logger:            logger,
	}
}

// Enqueue submits a receipt for printing. It never blocks the caller for
// printer I/O; if the job queue is full the job is dropped and logged.
func (m *Manager) Enqueue(job []byte) {
	select {
	case m.jobs <- job:
	default:
		m.logger.Warn("print job queue full, dropping job", "bytes", len(job))
		m.recordJobOutcome("dropped")
	}
}

// Run drives the printer connection until ctx is cancelled or the job
// channel is closed: connect, then serialize jobs through SendCommands,
// reconnecting (with one retry per job) on a write failure.
func (m *Manager) Run(ctx context.Context) {
	m.logger.Info("printer manager started")
	m.connectLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("printer manager shutdown signal received")
			return
		case job, ok := <-m.jobs:
			if !ok {
				m.logger.Info("printer job channel closed, printer manager shutting down")
				return
			}
			m.handleJob(ctx, job)
		}
	}
}

func (m *Manager) handleJob(ctx context.Context, job []byte) {
	if !m.conn.IsConnected() {
		m.logger.Warn("printer disconnected, attempting to reconnect before job", "bytes", len(job))
		m.connectLoop(ctx)
	}

	if err := m.conn.SendCommands(ctx, job); err != nil {
		m.logger.Error("failed to print, reconnecting", "error", err)
		m.connectLoop(ctx)
		if m.conn.IsConnected() {
			if err2 := m.conn.SendCommands(ctx, job); err2 != nil {
				m.logger.Error("retry failed, job dropped", "error", err2)
				m.recordJobOutcome("dropped")
			} else {
				m.logger.Info("retry succeeded")
				m.recordJobOutcome("success")
			}
		} else {
			m.recordJobOutcome("dropped")
		}
		return
	}
	m.recordJobOutcome("success")
	m.logger.Info("print job sent", "bytes", len(job))
}

// connectLoop blocks until the connection succeeds or ctx is cancelled.
func (m *Manager) connectLoop(ctx context.Context) {
	if m.conn.IsConnected() {
		return
	}
	m.logger.Warn("connecting to printer")
	for {
		if err := m.conn.Connect(ctx); err == nil {
			m.logger.Info("printer connected")
			return
		} else {
			m.logger.Error("printer connection failed, retrying", "error", err, "retry_in", m.reconnectInterval)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.reconnectInterval):
		}
	}
}
