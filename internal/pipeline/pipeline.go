// Package pipeline processes a tag's raw driver reading through its
// configured parse/validate/scale chain before the value reaches the
// domain layer. Ported from application/src/tag/tag_pipeline.rs's
// TagPipeline and infrastructure/src/pipeline.rs's parser/validator
// implementations.
package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// valueParser turns a raw string reading into a structured value.
type valueParser interface {
	Parse(raw string) (any, error)
}

// valueValidator rejects a parsed value that doesn't meet its rule.
type valueValidator interface {
	Validate(value any) error
}

// TagPipeline runs one tag's PipelineConfig: parse, then validate in
// order, then scale. A failure at any of the first two stages discards
// the reading rather than erroring — only a malformed PipelineConfig at
// construction time is logged as an error.
type TagPipeline struct {
	tagID      domain.TagID
	parser     valueParser
	validators []valueValidator
	scaling    *domain.ScalingConfig
	logger     *slog.Logger
}

// NewTagPipeline builds a TagPipeline from cfg. A parser or validator that
// fails to construct (e.g. an invalid regex) is dropped with an error log
// rather than failing the whole tag.
func NewTagPipeline(tagID domain.TagID, cfg domain.PipelineConfig, logger *slog.Logger) *TagPipeline {
	if logger == nil {
		logger = slog.Default()
	}

	var parser valueParser
	if cfg.Parser != nil {
		p, err := createParser(*cfg.Parser)
		if err != nil {
			logger.Error("failed to create parser for tag", "tag_id", tagID, "error", err)
		} else {
			parser = p
		}
	}

	validators := make([]valueValidator, 0, len(cfg.Validators))
	for _, vc := range cfg.Validators {
		v, err := createValidator(vc)
		if err != nil {
			logger.Error("failed to create validator for tag", "tag_id", tagID, "error", err)
			continue
		}
		validators = append(validators, v)
	}

	return &TagPipeline{
		tagID:      tagID,
		parser:     parser,
		validators: validators,
		scaling:    cfg.Scaling,
		logger:     logger,
	}
}

// TagID returns the tag this pipeline was built for.
func (p *TagPipeline) TagID() domain.TagID {
	return p.tagID
}

// Process runs raw through parse, validate, and scale in order. The
// second return value is false when the reading should be discarded
// (parse or validation failure), never when err is non-nil — a
// discarded reading is normal operation, not a system error.
func (p *TagPipeline) Process(raw any) (any, bool, error) {
	parsed := raw

	if p.parser != nil {
		rawStr, ok := raw.(string)
		if !ok {
			if b, err := json.Marshal(raw); err == nil {
				rawStr = string(b)
			} else {
				rawStr = fmt.Sprintf("%v", raw)
			}
		}

		v, err := p.parser.Parse(rawStr)
		if err != nil {
			p.logger.Warn("parsing failed for tag", "tag_id", p.tagID, "error", err)
			return nil, false, nil
		}
		parsed = v
	}

	for _, validator := range p.validators {
		if err := validator.Validate(parsed); err != nil {
			p.logger.Warn("validation failed for tag", "tag_id", p.tagID, "value", parsed, "error", err)
			return nil, false, nil
		}
	}

	final := parsed
	if p.scaling != nil && p.scaling.Type == domain.ScalingLinear {
		if num, ok := extractScalable(parsed); ok {
			result := num*p.scaling.Slope + p.scaling.Intercept
			final = math.Round(result*10000) / 10000
		} else {
			p.logger.Warn("scaling configured for tag but value is not numeric", "tag_id", p.tagID, "value", parsed)
		}
	}

	return final, true, nil
}

// extractScalable pulls a float64 out of a bare number or a
// single-element array, the two shapes a batch driver (e.g. Modbus)
// commonly hands back for a scalar reading.
func extractScalable(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case []any:
		if len(v) == 1 {
			if f, ok := v[0].(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
