// Package automation evaluates trigger conditions against incoming tag
// values and fires the configured action once a trigger matches.
package automation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/metrics"
)

// triggerState tracks the runtime counters backing a trigger's evaluation,
// independent of the (immutable) AutomationConfig it belongs to.
type triggerState struct {
	consecutiveMatches int
}

// activeAutomation binds one tag's automation config to its runtime
// trigger state and the value-shape metadata GetPrimaryValue needs.
type activeAutomation struct {
	config      domain.AutomationConfig
	state       triggerState
	valueType   domain.TagValueType
	valueSchema any
}

// Engine evaluates every tag's configured automations against each
// TagValueUpdated event it receives and fires the matching action through
// an ActionExecutor. It implements domain.EventPublisher so it can be
// chained into the composite event bus like any other sink.
type Engine struct {
	mu          sync.Mutex
	automations map[domain.TagID][]*activeAutomation
	executor    ActionExecutor
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// SetMetrics attaches a Metrics instance the engine increments every time
// a trigger fires. Optional.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// tagAutomationSource is the minimal view of a tag the engine needs to
// build its trigger map: id, automations, and the value-shape metadata
// GetPrimaryValue-style extraction needs.
type tagAutomationSource struct {
	ID          domain.TagID
	Automations []domain.AutomationConfig
	ValueType   domain.TagValueType
	ValueSchema any
}

// TagsFrom adapts a slice of domain.Tag into the engine's load/reload
// input, mirroring original_source's TagConfig -> ActiveAutomation mapping.
func TagsFrom(tags []*domain.Tag) []tagAutomationSource {
	sources := make([]tagAutomationSource, 0, len(tags))
	for _, t := range tags {
		sources = append(sources, tagAutomationSource{
			ID:          t.ID(),
			Automations: t.PipelineConfig().Automations,
			ValueType:   t.ValueType(),
			ValueSchema: t.ValueSchema(),
		})
	}
	return sources
}

// NewEngine constructs an Engine from a set of tags and builds its initial
// trigger map. Tags with no automations configured are skipped.
func NewEngine(tags []tagAutomationSource, executor ActionExecutor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if executor == nil {
		executor = NewLoggingActionExecutor(logger)
	}
	e := &Engine{executor: executor, logger: logger}
	e.automations = buildMap(tags, logger)
	return e
}

func buildMap(tags []tagAutomationSource, logger *slog.Logger) map[domain.TagID][]*activeAutomation {
	m := make(map[domain.TagID][]*activeAutomation)
	for _, tag := range tags {
		if len(tag.Automations) == 0 {
			continue
		}
		list := make([]*activeAutomation, 0, len(tag.Automations))
		for _, cfg := range tag.Automations {
			list = append(list, &activeAutomation{
				config:      cfg,
				valueType:   tag.ValueType,
				valueSchema: tag.ValueSchema,
			})
		}
		logger.Info("automations loaded", "tag_id", tag.ID, "count", len(list))
		m[tag.ID] = list
	}
	return m
}

// Reload replaces the engine's trigger map wholesale, discarding all
// in-flight trigger state (consecutive-match counters reset to zero).
func (e *Engine) Reload(tags []tagAutomationSource) {
	newMap := buildMap(tags, e.logger)
	e.mu.Lock()
	e.automations = newMap
	e.mu.Unlock()
	e.logger.Info("automation engine reloaded")
}

// ReloadFromTags is Reload adapted for callers outside this package (the
// ConfigManager's hot-reload path) that only hold domain.Tag values.
func (e *Engine) ReloadFromTags(tags []*domain.Tag) {
	e.Reload(TagsFrom(tags))
}

// Publish implements domain.EventPublisher: a TagValueUpdated event is
// evaluated against that tag's triggers; every other event type is a no-op.
func (e *Engine) Publish(ctx context.Context, event domain.DomainEvent) error {
	if event.Type != domain.EventTagValueUpdated {
		return nil
	}
	e.HandleEvent(ctx, event)
	return nil
}

// HandleEvent evaluates event.TagID's active automations and fires the
// action for any trigger that matches.
func (e *Engine) HandleEvent(ctx context.Context, event domain.DomainEvent) {
	e.mu.Lock()
	list, ok := e.automations[event.TagID]
	e.mu.Unlock()
	if !ok {
		return
	}

	for _, a := range list {
		if e.evaluateTrigger(a, event.Value) {
			if e.metrics != nil {
				e.metrics.AutomationFiresTotal.WithLabelValues(a.config.Name).Inc()
			}
			e.executor.Execute(ctx, a.config.Action, event.TagID, event.Value)
		}
	}
}

// evaluateTrigger runs the ConsecutiveValues condition against a's runtime
// state, mutating the consecutive-match counter and resetting it once the
// trigger fires so it doesn't fire again on every subsequent matching read.
func (e *Engine) evaluateTrigger(a *activeAutomation, value any) bool {
	if a.config.Trigger.Type != domain.TriggerConsecutiveValues {
		return false
	}

	numVal := primaryValue(value, a.valueType, a.valueSchema)
	op := a.config.Trigger.EffectiveOperator()
	matched := op.Compare(numVal, a.config.Trigger.TargetValue)

	if matched {
		a.state.consecutiveMatches++
	} else {
		a.state.consecutiveMatches = 0
	}

	if a.state.consecutiveMatches >= a.config.Trigger.Count {
		a.state.consecutiveMatches = 0
		return true
	}
	return false
}

// primaryValue extracts the numeric value a trigger compares against,
// mirroring Tag.GetPrimaryValue's Simple/Composite navigation since the
// engine only has the raw event payload, not the Tag aggregate itself.
func primaryValue(value any, valueType domain.TagValueType, valueSchema any) float64 {
	if valueType.IsComposite() {
		obj, ok := value.(map[string]any)
		if !ok {
			return 0
		}
		primaryKey := "value"
		if schema, ok := valueSchema.(map[string]any); ok {
			if k, ok := schema["primary"].(string); ok && k != "" {
				primaryKey = k
			}
		}
		return asFloat(obj[primaryKey])
	}
	return asFloat(value)
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
