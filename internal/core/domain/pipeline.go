package domain

import "encoding/json"

// ParserKind selects how a Tag's raw driver reading is turned into a JSON
// value before validation and scaling.
type ParserKind string

const (
	ParserNone     ParserKind = "None"
	ParserRegex    ParserKind = "Regex"
	ParserJson     ParserKind = "Json"
	ParserCustom   ParserKind = "Custom"
	ParserIndexMap ParserKind = "IndexMap"
)

// ParserConfig is a closed, internally-tagged union: only the fields that
// apply to Type are populated. Unused fields are left zero/omitted on the
// wire, mirroring original_source's serde(tag = "type") enum.
type ParserConfig struct {
	Type ParserKind `json:"type"`

	// Regex
	Pattern string `json:"pattern,omitempty"`

	// Json
	Path string `json:"path,omitempty"`

	// Custom
	Name   string          `json:"name,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`

	// IndexMap
	Keys  []string `json:"keys,omitempty"`
	Scale *float64 `json:"scale,omitempty"`
}

// ValidatorKind selects which validator a ValidatorConfig applies.
type ValidatorKind string

const (
	ValidatorRange    ValidatorKind = "Range"
	ValidatorContains ValidatorKind = "Contains"
	ValidatorCustom   ValidatorKind = "Custom"
)

// ValidatorConfig is a closed, internally-tagged union over validator kinds.
type ValidatorConfig struct {
	Type ValidatorKind `json:"type"`

	// Range
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Contains
	Substring string `json:"substring,omitempty"`

	// Custom
	Name   string          `json:"name,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// ScalingKind selects which scaling transform a ScalingConfig applies.
type ScalingKind string

const ScalingLinear ScalingKind = "Linear"

// ScalingConfig is a closed, internally-tagged union over scaling kinds.
// Linear is the only variant so far: y = slope*x + intercept.
type ScalingConfig struct {
	Type      ScalingKind `json:"type"`
	Slope     float64     `json:"slope"`
	Intercept float64     `json:"intercept"`
}

// NewLinearScaling returns a ScalingConfig computing y = slope*x + intercept.
func NewLinearScaling(slope, intercept float64) ScalingConfig {
	return ScalingConfig{Type: ScalingLinear, Slope: slope, Intercept: intercept}
}

// PipelineConfig is the per-tag processing pipeline: an optional parser,
// optional scaling, zero or more validators run in order, and zero or more
// automations evaluated against the resulting value.
type PipelineConfig struct {
	Parser      *ParserConfig      `json:"parser,omitempty"`
	Scaling     *ScalingConfig     `json:"scaling,omitempty"`
	Validators  []ValidatorConfig  `json:"validators,omitempty"`
	Automations []AutomationConfig `json:"automations,omitempty"`
}
