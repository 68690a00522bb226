package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Tag is the aggregate root for one logical measurement point: a driver
// reading, shaped by its PipelineConfig, carrying the runtime state a
// DeviceActor updates as new values arrive. Tag is not safe for concurrent
// use; callers (the owning device actor) serialize access.
type Tag struct {
	id             TagID
	sourceConfig   any
	deviceID       string
	updateMode     UpdateMode
	valueType      TagValueType
	valueSchema    any
	pipelineConfig PipelineConfig
	enabled        bool
	metadata       any

	lastValue    any
	lastUpdate   *time.Time
	status       TagStatus
	quality      TagQuality
	errorMessage string

	createdAt time.Time
	updatedAt time.Time
}

// NewTag constructs a Tag in its initial, never-updated state.
func NewTag(id TagID, deviceID string, sourceConfig any, updateMode UpdateMode, valueType TagValueType, pipelineConfig PipelineConfig) *Tag {
	now := time.Now().UTC()
	return &Tag{
		id:             id,
		deviceID:       deviceID,
		sourceConfig:   sourceConfig,
		updateMode:     updateMode,
		valueType:      valueType,
		pipelineConfig: pipelineConfig,
		enabled:        true,
		status:         StatusUnknown,
		quality:        QualityUncertain,
		createdAt:      now,
		updatedAt:      now,
	}
}

func (t *Tag) ID() TagID                        { return t.id }
func (t *Tag) DeviceID() string                  { return t.deviceID }
func (t *Tag) SourceConfig() any                 { return t.sourceConfig }
func (t *Tag) UpdateMode() UpdateMode             { return t.updateMode }
func (t *Tag) ValueType() TagValueType            { return t.valueType }
func (t *Tag) ValueSchema() any                   { return t.valueSchema }
func (t *Tag) PipelineConfig() PipelineConfig     { return t.pipelineConfig }
func (t *Tag) Status() TagStatus                  { return t.status }
func (t *Tag) Quality() TagQuality                { return t.quality }
func (t *Tag) IsEnabled() bool                    { return t.enabled }
func (t *Tag) Metadata() any                       { return t.metadata }
func (t *Tag) LastValue() any                      { return t.lastValue }
func (t *Tag) LastUpdate() *time.Time              { return t.lastUpdate }
func (t *Tag) ErrorMessage() string                { return t.errorMessage }
func (t *Tag) CreatedAt() time.Time                { return t.createdAt }
func (t *Tag) UpdatedAt() time.Time                { return t.updatedAt }

// IsHealthy reports whether the tag is enabled, online, and its last
// reading is good enough to act on.
func (t *Tag) IsHealthy() bool {
	return t.enabled && t.status.IsHealthy() && t.quality.IsUsable()
}

// IsTimedOut reports whether the tag's freshness window has elapsed.
// OnChange tags never time out on their own; Polling/PollingOnChange tags
// are stale once they've never updated, or once the mode's timeout window
// has elapsed since the last update.
func (t *Tag) IsTimedOut() bool {
	if t.updateMode.Kind == UpdateModeOnChange {
		return false
	}
	if t.lastUpdate == nil {
		return true
	}
	elapsed := time.Since(*t.lastUpdate)
	return elapsed > time.Duration(t.updateMode.TimeoutMillis())*time.Millisecond
}

// UpdateValue records a new reading and derives status from quality:
// Good quality goes Online, Timeout quality goes Offline, anything else
// (Bad, Uncertain) goes Error.
func (t *Tag) UpdateValue(value any, quality TagQuality) {
	now := time.Now().UTC()
	t.lastValue = value
	t.lastUpdate = &now
	t.quality = quality
	switch {
	case quality.IsUsable():
		t.status = StatusOnline
	case quality == QualityTimeout:
		t.status = StatusOffline
	default:
		t.status = StatusError
	}
	t.updatedAt = now
}

// MarkOffline marks the tag unreachable without recording a new value.
func (t *Tag) MarkOffline() {
	t.status = StatusOffline
	t.quality = QualityTimeout
	t.updatedAt = time.Now().UTC()
}

// MarkError marks the tag as failing, recording the error's cause.
func (t *Tag) MarkError(message string) {
	t.status = StatusError
	t.quality = QualityBad
	t.errorMessage = message
	t.updatedAt = time.Now().UTC()
}

// Enable marks the tag eligible for polling/acquisition.
func (t *Tag) Enable() {
	t.enabled = true
	t.updatedAt = time.Now().UTC()
}

// Disable marks the tag excluded from polling/acquisition.
func (t *Tag) Disable() {
	t.enabled = false
	t.updatedAt = time.Now().UTC()
}

// ResetTimeout nudges the freshness window forward without changing the
// recorded value, used when a driver confirms liveness without new data.
func (t *Tag) ResetTimeout() {
	now := time.Now().UTC()
	t.lastUpdate = &now
	t.updatedAt = now
}

// SetValueSchema attaches display/primary-key metadata used by
// GetPrimaryValue and GetDisplayString. Intended for repository
// reconstruction, not runtime use.
func (t *Tag) SetValueSchema(schema any) { t.valueSchema = schema }

// SetMetadata attaches free-form operator metadata to the tag.
func (t *Tag) SetMetadata(metadata any) { t.metadata = metadata }

// GetPrimaryValue extracts the single numeric value used by automation
// triggers: the reading itself for a Simple tag, or the field named by
// ValueSchema's "primary" key (default "value") for a Composite tag.
func (t *Tag) GetPrimaryValue() float64 {
	if t.lastValue == nil {
		return 0
	}

	if t.valueType.IsComposite() {
		primaryKey := "value"
		if schema, ok := t.valueSchema.(map[string]any); ok {
			if k, ok := schema["primary"].(string); ok && k != "" {
				primaryKey = k
			}
		}
		if obj, ok := t.lastValue.(map[string]any); ok {
			return asFloat(obj[primaryKey])
		}
		return 0
	}

	return asFloat(t.lastValue)
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// GetDisplayString renders the tag's last value for a human: "value unit"
// for Simple tags, or "label: value, label: value" for Composite tags
// (falling back to a JSON-ish rendering when the value isn't an object).
func (t *Tag) GetDisplayString() string {
	if t.lastValue == nil {
		return "---"
	}

	if t.valueType.IsComposite() {
		obj, ok := t.lastValue.(map[string]any)
		if !ok {
			return fmt.Sprintf("%v", t.lastValue)
		}
		labels, _ := t.valueSchema.(map[string]any)
		var labelMap map[string]any
		if labels != nil {
			labelMap, _ = labels["labels"].(map[string]any)
		}

		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			label := k
			if labelMap != nil {
				if l, ok := labelMap[k].(string); ok && l != "" {
					label = l
				}
			}
			parts = append(parts, fmt.Sprintf("%s: %v", label, obj[k]))
		}
		if len(parts) == 0 {
			return fmt.Sprintf("%v", t.lastValue)
		}
		return strings.Join(parts, ", ")
	}

	unit := ""
	if schema, ok := t.valueSchema.(map[string]any); ok {
		if u, ok := schema["unit"].(string); ok {
			unit = u
		}
	}
	return strings.TrimSpace(fmt.Sprintf("%v %s", t.lastValue, unit))
}

// GetPrintString renders the tag's value for inclusion on a printed ticket.
func (t *Tag) GetPrintString() string {
	return t.GetDisplayString()
}
