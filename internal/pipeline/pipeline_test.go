package pipeline

import (
	"log/slog"
	"testing"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

func floatPtr(f float64) *float64 { return &f }

func TestNewTagPipeline_NilParserPassesValueThrough(t *testing.T) {
	p := NewTagPipeline(domain.TagID("t1"), domain.PipelineConfig{}, slog.Default())

	value, ok, err := p.Process(42.5)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !ok {
		t.Fatalf("Process() ok = false, want true")
	}
	if value != 42.5 {
		t.Fatalf("Process() = %v, want 42.5", value)
	}
}

func TestNewTagPipeline_InvalidRegexIsDroppedNotFatal(t *testing.T) {
	cfg := domain.PipelineConfig{
		Parser: &domain.ParserConfig{Type: domain.ParserRegex, Pattern: "(["},
	}
	p := NewTagPipeline(domain.TagID("t1"), cfg, slog.Default())

	if p.parser != nil {
		t.Fatalf("parser = %v, want nil after construction failure", p.parser)
	}

	// With no parser installed, raw values pass through unchanged.
	value, ok, err := p.Process("98.6")
	if err != nil || !ok {
		t.Fatalf("Process() = %v, %v, %v", value, ok, err)
	}
	if value != "98.6" {
		t.Fatalf("Process() = %v, want \"98.6\"", value)
	}
}

func TestTagPipeline_RegexParseThenRangeValidate(t *testing.T) {
	cfg := domain.PipelineConfig{
		Parser: &domain.ParserConfig{Type: domain.ParserRegex, Pattern: `TEMP=([0-9.]+)`},
		Validators: []domain.ValidatorConfig{
			{Type: domain.ValidatorRange, Min: floatPtr(0), Max: floatPtr(100)},
		},
	}
	p := NewTagPipeline(domain.TagID("temp-1"), cfg, slog.Default())

	value, ok, err := p.Process("TEMP=23.5;OK")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !ok {
		t.Fatalf("Process() discarded a valid reading")
	}
	if value != 23.5 {
		t.Fatalf("Process() = %v, want 23.5", value)
	}
}

func TestTagPipeline_RangeValidatorDiscardsOutOfBounds(t *testing.T) {
	cfg := domain.PipelineConfig{
		Parser: &domain.ParserConfig{Type: domain.ParserRegex, Pattern: `TEMP=([0-9.]+)`},
		Validators: []domain.ValidatorConfig{
			{Type: domain.ValidatorRange, Min: floatPtr(0), Max: floatPtr(100)},
		},
	}
	p := NewTagPipeline(domain.TagID("temp-1"), cfg, slog.Default())

	value, ok, err := p.Process("TEMP=999;OK")
	if err != nil {
		t.Fatalf("Process() error = %v, want nil (discard is not an error)", err)
	}
	if ok {
		t.Fatalf("Process() ok = true, want false for out-of-range reading, got value %v", value)
	}
}

func TestTagPipeline_ParseFailureDiscardsReading(t *testing.T) {
	cfg := domain.PipelineConfig{
		Parser: &domain.ParserConfig{Type: domain.ParserRegex, Pattern: `TEMP=([0-9.]+)`},
	}
	p := NewTagPipeline(domain.TagID("temp-1"), cfg, slog.Default())

	_, ok, err := p.Process("garbage")
	if err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}
	if ok {
		t.Fatalf("Process() ok = true, want false for unmatched input")
	}
}

func TestTagPipeline_LinearScalingRoundsToFourDecimals(t *testing.T) {
	scaling := domain.NewLinearScaling(0.1, 2.0)
	cfg := domain.PipelineConfig{Scaling: &scaling}
	p := NewTagPipeline(domain.TagID("press-1"), cfg, slog.Default())

	value, ok, err := p.Process(10.0 / 3.0)
	if err != nil || !ok {
		t.Fatalf("Process() = %v, %v, %v", value, ok, err)
	}
	// (10/3)*0.1 + 2.0 = 2.333333... -> rounds to 2.3333
	got, isFloat := value.(float64)
	if !isFloat {
		t.Fatalf("Process() returned %T, want float64", value)
	}
	if got != 2.3333 {
		t.Fatalf("Process() = %v, want 2.3333", got)
	}
}

func TestTagPipeline_ScalingSkipsNonNumericValue(t *testing.T) {
	scaling := domain.NewLinearScaling(2.0, 0.0)
	cfg := domain.PipelineConfig{Scaling: &scaling}
	p := NewTagPipeline(domain.TagID("status-1"), cfg, slog.Default())

	value, ok, err := p.Process("ALARM")
	if err != nil || !ok {
		t.Fatalf("Process() = %v, %v, %v", value, ok, err)
	}
	if value != "ALARM" {
		t.Fatalf("Process() = %v, want unscaled \"ALARM\"", value)
	}
}

func TestTagPipeline_ScalingAppliesToSingleElementArray(t *testing.T) {
	scaling := domain.NewLinearScaling(1.0, 0.0)
	cfg := domain.PipelineConfig{Scaling: &scaling}
	p := NewTagPipeline(domain.TagID("array-1"), cfg, slog.Default())

	value, ok, err := p.Process([]any{12.5})
	if err != nil || !ok {
		t.Fatalf("Process() = %v, %v, %v", value, ok, err)
	}
	if value != 12.5 {
		t.Fatalf("Process() = %v, want 12.5", value)
	}
}

func TestTagPipeline_FullChain_JsonParseThenContainsValidate(t *testing.T) {
	cfg := domain.PipelineConfig{
		Parser: &domain.ParserConfig{Type: domain.ParserJson, Path: "reading"},
		Validators: []domain.ValidatorConfig{
			{Type: domain.ValidatorContains, Substring: "kg"},
		},
	}
	p := NewTagPipeline(domain.TagID("scale-1"), cfg, slog.Default())

	value, ok, err := p.Process(`{"reading": "12.345 kg"}`)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !ok {
		t.Fatalf("Process() discarded a valid reading, value=%v", value)
	}
	if value != "12.345 kg" {
		t.Fatalf("Process() = %v, want \"12.345 kg\"", value)
	}
}
