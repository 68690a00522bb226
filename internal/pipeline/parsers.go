package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// createParser builds the valueParser cfg.Type selects, mirroring
// infrastructure/src/pipeline.rs's PipelineFactory::create_parser.
func createParser(cfg domain.ParserConfig) (valueParser, error) {
	switch cfg.Type {
	case domain.ParserRegex:
		return newRegexParser(cfg.Pattern)
	case domain.ParserJson:
		return &jsonParser{path: cfg.Path}, nil
	case domain.ParserIndexMap:
		return &indexMapParser{keys: cfg.Keys, scale: cfg.Scale}, nil
	case domain.ParserCustom:
		if cfg.Name == "ScaleParser" {
			return newScaleParser(), nil
		}
		return nil, fmt.Errorf("custom parser %q not implemented", cfg.Name)
	case domain.ParserNone:
		return nil, fmt.Errorf("no parser configured")
	default:
		return nil, fmt.Errorf("unknown parser type %q", cfg.Type)
	}
}

// regexParser extracts the first capture group and, when it parses as a
// number, returns it as float64 rather than string.
type regexParser struct {
	re *regexp.Regexp
}

func newRegexParser(pattern string) (*regexParser, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return &regexParser{re: re}, nil
}

func (p *regexParser) Parse(raw string) (any, error) {
	matches := p.re.FindStringSubmatch(raw)
	if len(matches) < 2 {
		return nil, fmt.Errorf("no match found for regex")
	}
	if num, err := strconv.ParseFloat(matches[1], 64); err == nil {
		return num, nil
	}
	return matches[1], nil
}

// jsonParser decodes raw as JSON and, when path is set, walks a
// dot-separated chain of object keys (e.g. "data.value").
type jsonParser struct {
	path string
}

func (p *jsonParser) Parse(raw string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if p.path == "" {
		return value, nil
	}

	current := value
	for _, part := range strings.Split(p.path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %s not found", part)
		}
		next, ok := m[part]
		if !ok {
			return nil, fmt.Errorf("path %s not found", part)
		}
		current = next
	}
	return current, nil
}

// indexMapParser decodes raw as a JSON array and maps each position onto
// keys[i], applying an optional scale factor to numeric elements.
// Positions beyond the array's length map to nil.
type indexMapParser struct {
	keys  []string
	scale *float64
}

func (p *indexMapParser) Parse(raw string) (any, error) {
	var arr []any
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		return nil, fmt.Errorf("indexmap parser input must be a json array: %w", err)
	}

	result := make(map[string]any, len(p.keys))
	for i, key := range p.keys {
		if i >= len(arr) {
			result[key] = nil
			continue
		}
		val := arr[i]
		if p.scale != nil {
			if num, ok := val.(float64); ok {
				val = num * *p.scale
			}
		}
		result[key] = val
	}
	return result, nil
}

// scaleParser extracts a leading numeric token followed by a unit string
// from noisy scale/indicator output (e.g. "ST,GS 12.345 kg"), ported from
// infrastructure/src/pipeline.rs's ScaleParser.
type scaleParser struct {
	numberPattern *regexp.Regexp
}

func newScaleParser() *scaleParser {
	return &scaleParser{numberPattern: regexp.MustCompile(`([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?)`)}
}

func (p *scaleParser) Parse(raw string) (any, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if s == "" {
		return nil, fmt.Errorf("empty input")
	}

	start := findNumberStart(s)
	if start < 0 {
		return nil, fmt.Errorf("no numeric value found")
	}

	rest := strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(s[start:]), ",", "."), " ", "")

	loc := p.numberPattern.FindStringIndex(rest)
	if loc == nil {
		return nil, fmt.Errorf("no numeric value found")
	}
	numStr := rest[loc[0]:loc[1]]
	unitStr := strings.TrimSpace(rest[loc[1]:])

	value, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number format: %q", numStr)
	}
	if unitStr == "" {
		return nil, fmt.Errorf("no unit found")
	}

	return map[string]any{"value": value, "unit": unitStr}, nil
}

func findNumberStart(s string) int {
	for i, r := range s {
		if unicode.IsDigit(r) || r == '+' || r == '-' || r == '.' {
			return i
		}
	}
	return -1
}
