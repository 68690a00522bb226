// Package batch accumulates tag readings into a per-session buffer until
// an operator (or automation) flushes it for printing, ported from
// original_source's BatchManager weighing-ticket accumulator.
package batch

import (
	"log/slog"
	"time"
)

// Item is a single accumulated reading, matching domain.ReportItem's shape
// so a flushed batch maps onto it directly.
type Item struct {
	Value     any
	Timestamp time.Time
	Metadata  map[string]any
}

// Manager accumulates Items for one session, applying the same reset
// rules as the original weighing-scale workflow: a stale session (past its
// timeout) clears on the next add, and a negative-to-positive value
// transition clears the batch because it marks the start of a new
// weighing cycle.
type Manager struct {
	items          []Item
	lastUpdate     time.Time
	sessionTimeout time.Duration
	logger         *slog.Logger
}

// NewManager returns an empty Manager with a 30-minute session timeout,
// matching the original's default.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		lastUpdate:     time.Now(),
		sessionTimeout: 30 * time.Minute,
		logger:         logger,
	}
}

// AddItem appends value/metadata to the batch, applying the time-window
// and negative-to-positive reset rules first.
func (m *Manager) AddItem(value any, metadata map[string]any) {
	now := time.Now()

	if now.Sub(m.lastUpdate) > m.sessionTimeout {
		m.logger.Info("batch session expired, resetting", "timeout", m.sessionTimeout)
		m.items = nil
	}

	numVal := primaryNumeric(value)
	if len(m.items) > 0 {
		lastVal := primaryNumeric(m.items[len(m.items)-1].Value)
		if lastVal < 0 && numVal > 0 {
			m.logger.Info("new weighing cycle detected (negative to positive), resetting batch")
			m.items = nil
		}
	}

	m.items = append(m.items, Item{Value: value, Timestamp: now, Metadata: metadata})
	m.lastUpdate = now
}

// TakeBatch returns the accumulated items and clears the buffer.
func (m *Manager) TakeBatch() []Item {
	items := m.items
	m.items = nil
	m.logger.Info("batch taken, buffer cleared", "count", len(items))
	return items
}

// IsEmpty reports whether the buffer currently holds no items.
func (m *Manager) IsEmpty() bool {
	return len(m.items) == 0
}

// primaryNumeric extracts a numeric reading from either a raw scalar or a
// composite {"value": ...} payload, matching the original's
// serde_json::Value::Number / Object("value") navigation.
func primaryNumeric(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case map[string]any:
		return primaryNumeric(v["value"])
	default:
		return 0
	}
}
