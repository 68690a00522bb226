package pipeline

import (
	"fmt"
	"strings"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// createValidator builds the valueValidator cfg.Type selects, mirroring
// infrastructure/src/pipeline.rs's PipelineFactory::create_validator.
func createValidator(cfg domain.ValidatorConfig) (valueValidator, error) {
	switch cfg.Type {
	case domain.ValidatorRange:
		return &rangeValidator{min: cfg.Min, max: cfg.Max}, nil
	case domain.ValidatorContains:
		return &containsValidator{substring: cfg.Substring}, nil
	case domain.ValidatorCustom:
		return nil, fmt.Errorf("custom validator %q not implemented", cfg.Name)
	default:
		return nil, fmt.Errorf("unknown validator type %q", cfg.Type)
	}
}

// rangeValidator rejects a value outside [min, max], either bound
// optional. A bare number or a {"value": N} object both satisfy it.
type rangeValidator struct {
	min *float64
	max *float64
}

func (v *rangeValidator) Validate(value any) error {
	num, ok := extractValidatable(value)
	if !ok {
		return fmt.Errorf("value is not a number")
	}
	if v.min != nil && num < *v.min {
		return fmt.Errorf("value %v is below minimum %v", num, *v.min)
	}
	if v.max != nil && num > *v.max {
		return fmt.Errorf("value %v is above maximum %v", num, *v.max)
	}
	return nil
}

func extractValidatable(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case map[string]any:
		if f, ok := v["value"].(float64); ok {
			return f, true
		}
	}
	return 0, false
}

// containsValidator rejects a string value that doesn't contain substring.
type containsValidator struct {
	substring string
}

func (v *containsValidator) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("value is not a string")
	}
	if !strings.Contains(s, v.substring) {
		return fmt.Errorf("value does not contain required substring %q", v.substring)
	}
	return nil
}
