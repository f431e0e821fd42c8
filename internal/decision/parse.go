package decision

import (
	"math"
	"strings"

	"evergreen/internal/pkg/jsonutil"

	"github.com/tidwall/gjson"
)

// ParseDecision turns a raw completion into a validated AgentDecision.
// Markdown fences and prose around the JSON object are tolerated; the fields
// themselves are not coerced.
func ParseDecision(source, raw string) (AgentDecision, error) {
	obj, err := parseObject(source, raw)
	if err != nil {
		return AgentDecision{}, err
	}
	return decodeDecision(source, obj)
}

func parseObject(source, raw string) (gjson.Result, error) {
	text := strings.TrimSpace(raw)
	if !gjson.Valid(text) {
		extracted, ok := jsonutil.ExtractJSON(text)
		if !ok || !gjson.Valid(extracted) {
			return gjson.Result{}, &ParseError{Source: source, Raw: raw, Reason: "not valid JSON"}
		}
		text = extracted
	}
	res := gjson.Parse(text)
	if !res.IsObject() {
		return gjson.Result{}, &ParseError{Source: source, Raw: raw, Reason: "expected a JSON object"}
	}
	return res, nil
}

// decodeDecision applies the field rules shared by generation and debate.
func decodeDecision(source string, obj gjson.Result) (AgentDecision, error) {
	for _, field := range []string{"direction", "confidence", "size", "reasoning"} {
		if !obj.Get(field).Exists() {
			return AgentDecision{}, &ParseError{Source: source, Raw: obj.Raw, Reason: "missing field " + field}
		}
	}

	dir := obj.Get("direction")
	if dir.Type != gjson.String || !Direction(dir.Str).Valid() {
		return AgentDecision{}, &ValidationError{Source: source, Field: "direction", Reason: "must be YES or NO, got " + dir.Raw}
	}
	conf := obj.Get("confidence")
	if conf.Type != gjson.Number {
		return AgentDecision{}, &ValidationError{Source: source, Field: "confidence", Reason: "must be a number, got " + conf.Raw}
	}
	if !finite(conf.Num) || conf.Num < 0 || conf.Num > 100 {
		return AgentDecision{}, &ValidationError{Source: source, Field: "confidence", Reason: "must be within [0,100], got " + conf.Raw}
	}
	size := obj.Get("size")
	if size.Type != gjson.Number {
		return AgentDecision{}, &ValidationError{Source: source, Field: "size", Reason: "must be a number, got " + size.Raw}
	}
	if !finite(size.Num) || size.Num < 0 {
		return AgentDecision{}, &ValidationError{Source: source, Field: "size", Reason: "must be a finite non-negative number, got " + size.Raw}
	}
	reasoning := obj.Get("reasoning")
	if reasoning.Type != gjson.String || strings.TrimSpace(reasoning.Str) == "" {
		return AgentDecision{}, &ValidationError{Source: source, Field: "reasoning", Reason: "must be a non-empty string"}
	}

	return AgentDecision{
		Direction:  Direction(dir.Str),
		Confidence: conf.Num,
		Size:       size.Num,
		Reasoning:  reasoning.Str,
	}, nil
}

// Validate checks an already-typed decision against the same rules.
func Validate(d AgentDecision) error {
	switch {
	case !d.Direction.Valid():
		return &ValidationError{Field: "direction", Reason: "must be YES or NO, got " + string(d.Direction)}
	case !finite(d.Confidence) || d.Confidence < 0 || d.Confidence > 100:
		return &ValidationError{Field: "confidence", Reason: "must be within [0,100]"}
	case !finite(d.Size) || d.Size < 0:
		return &ValidationError{Field: "size", Reason: "must be a finite non-negative number"}
	case strings.TrimSpace(d.Reasoning) == "":
		return &ValidationError{Field: "reasoning", Reason: "must be a non-empty string"}
	}
	return nil
}

// finite rejects NaN and the infinities gjson yields for exponents like 1e999.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
