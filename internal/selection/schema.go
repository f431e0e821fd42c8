package selection

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const selectedMarketSchema = `{
  "type": "object",
  "required": ["market_id", "market_question", "condition_id"],
  "properties": {
    "market_id": {"type": "string", "minLength": 1},
    "market_question": {"type": "string", "minLength": 1},
    "condition_id": {"type": "string", "minLength": 1},
    "reasoning": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "expected_value": {"type": "number"},
    "liquidity_score": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

const enrichedMarketSchema = `{
  "type": "object",
  "required": ["market_id", "question", "key_facts"],
  "properties": {
    "market_id": {"type": "string", "minLength": 1},
    "question": {"type": "string", "minLength": 1},
    "condition_id": {"type": "string"},
    "key_facts": {"type": "array", "items": {"type": "string"}},
    "recent_events": {"type": ["array", "null"], "items": {"type": "string"}},
    "historical_context": {"type": ["array", "null"], "items": {"type": "string"}},
    "relevant_links": {"type": ["array", "null"], "items": {"type": "string"}},
    "price_drivers": {"type": ["array", "null"], "items": {"type": "string"}},
    "sentiment_indicators": {
      "type": ["object", "null"],
      "properties": {
        "bullish": {"type": "number", "minimum": 0},
        "bearish": {"type": "number", "minimum": 0},
        "neutral": {"type": "number", "minimum": 0}
      }
    },
    "datasets": {"type": ["object", "null"]}
  }
}`

var (
	selectedSchema = mustCompileSchema("selected_market.json", selectedMarketSchema)
	enrichedSchema = mustCompileSchema("enriched_market.json", enrichedMarketSchema)
)

func mustCompileSchema(name, doc string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("selection: add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// validateAgainst decodes raw and checks it with schema.
func validateAgainst(schema *jsonschema.Schema, raw string) error {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
