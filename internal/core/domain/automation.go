package domain

import "math"

// Operator is the comparison applied between a tag's current value and a
// trigger's target_value.
type Operator string

const (
	OperatorEqual          Operator = "Equal"
	OperatorLessOrEqual    Operator = "LessOrEqual"
	OperatorGreaterOrEqual Operator = "GreaterOrEqual"
	OperatorNotEqual       Operator = "NotEqual"
	OperatorLess           Operator = "Less"
	OperatorGreater        Operator = "Greater"
)

// float64Epsilon matches Rust's f64::EPSILON, the difference between 1.0
// and the next representable f64. Equal/NotEqual use it as a tolerance so
// a value carried through scaling/parsing float noise still compares
// correctly against a target, per original_source's engine.rs.
const float64Epsilon = 2.2204460492503131e-16

// Compare evaluates value against target using o. An unrecognized operator
// never matches.
func (o Operator) Compare(value, target float64) bool {
	switch o {
	case OperatorEqual:
		return math.Abs(value-target) < float64Epsilon
	case OperatorLessOrEqual:
		return value <= target
	case OperatorGreaterOrEqual:
		return value >= target
	case OperatorNotEqual:
		return math.Abs(value-target) >= float64Epsilon
	case OperatorLess:
		return value < target
	case OperatorGreater:
		return value > target
	default:
		return false
	}
}

// TriggerKind selects which trigger condition an AutomationConfig fires on.
type TriggerKind string

const TriggerConsecutiveValues TriggerKind = "ConsecutiveValues"

// TriggerConfig is a closed, internally-tagged union over trigger kinds.
// ConsecutiveValues is the only kind implemented: it fires once Count
// consecutive readings satisfy Op against TargetValue.
type TriggerConfig struct {
	Type        TriggerKind `json:"type"`
	TargetValue float64     `json:"target_value"`
	Count       int         `json:"count"`
	Op          Operator    `json:"operator,omitempty"`
	WithinMS    *uint64     `json:"within_ms,omitempty"`
}

// EffectiveOperator returns Op, defaulting to Equal when the config omitted
// it (mirroring original_source's serde default_operator).
func (t TriggerConfig) EffectiveOperator() Operator {
	if t.Op == "" {
		return OperatorEqual
	}
	return t.Op
}

// ActionKind selects which side effect an AutomationConfig performs once its
// trigger fires.
type ActionKind string

const (
	ActionPrintTicket    ActionKind = "PrintTicket"
	ActionPublishMqtt    ActionKind = "PublishMqtt"
	ActionAccumulateData ActionKind = "AccumulateData"
	ActionPrintBatch     ActionKind = "PrintBatch"
)

// ActionConfig is a closed, internally-tagged union over action kinds; only
// the fields relevant to Type are populated.
type ActionConfig struct {
	Type ActionKind `json:"type"`

	// PrintTicket
	Template   string `json:"template,omitempty"`
	ServiceURL string `json:"service_url,omitempty"`

	// PublishMqtt
	Topic           string `json:"topic,omitempty"`
	PayloadTemplate string `json:"payload_template,omitempty"`

	// AccumulateData / PrintBatch
	SessionID      string `json:"session_id,omitempty"`
	HeaderTemplate string `json:"header_template,omitempty"`
	FooterTemplate string `json:"footer_template,omitempty"`
}

// AutomationConfig binds a trigger condition to the action it fires, one
// entry of a Tag's PipelineConfig.Automations.
type AutomationConfig struct {
	Name    string        `json:"name"`
	Trigger TriggerConfig `json:"trigger"`
	Action  ActionConfig  `json:"action"`
}
