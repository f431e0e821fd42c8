package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"evergreen/internal/decision"
	"evergreen/internal/gateway/provider"
	"evergreen/internal/logger"
	"evergreen/internal/pkg/jsonutil"
	"evergreen/internal/pkg/text"
)

// SentimentIndicators are fractions that sum to 1 after normalisation.
type SentimentIndicators struct {
	Bullish float64 `json:"bullish"`
	Bearish float64 `json:"bearish"`
	Neutral float64 `json:"neutral"`
}

// EnrichedMarket is the research bundle produced for one selected market.
type EnrichedMarket struct {
	MarketID            string              `json:"market_id"`
	Question            string              `json:"question"`
	ConditionID         string              `json:"condition_id"`
	KeyFacts            []string            `json:"key_facts"`
	RecentEvents        []string            `json:"recent_events"`
	HistoricalContext   []string            `json:"historical_context"`
	RelevantLinks       []string            `json:"relevant_links"`
	SentimentIndicators SentimentIndicators `json:"sentiment_indicators"`
	PriceDrivers        []string            `json:"price_drivers"`
	Datasets            map[string]any      `json:"datasets"`
}

// Enricher asks a model for research context on a selected market.
type Enricher struct {
	model decision.Completer
}

func NewEnricher(model decision.Completer) *Enricher {
	return &Enricher{model: model}
}

func (e *Enricher) Enrich(ctx context.Context, sel SelectedMarket, m Market) (EnrichedMarket, error) {
	if e.model == nil {
		return EnrichedMarket{}, fmt.Errorf("enricher: no model configured")
	}
	outcomes, _ := json.Marshal(m.Outcomes)
	if m.Outcomes == nil {
		outcomes = []byte("[]")
	}
	user := fmt.Sprintf(enricherUserTemplate,
		sel.MarketQuestion, sel.ConditionID, string(outcomes),
		formatNumber(m.Volume), formatNumber(m.Liquidity), m.EndDate, m.Active, m.Closed,
		sel.MarketID, sel.MarketQuestion, sel.ConditionID)

	raw, err := e.model.Call(ctx, provider.ChatPayload{
		System:     enricherSystem,
		User:       user,
		ExpectJSON: true,
		Purpose:    "market_enricher",
	})
	if err != nil {
		return EnrichedMarket{}, &decision.CompletionError{Model: e.model.ID(), Purpose: "market_enricher", Err: err}
	}
	enriched, err := parseEnrichment(raw)
	if err != nil {
		return EnrichedMarket{}, err
	}
	if enriched.ConditionID == "" {
		enriched.ConditionID = sel.ConditionID
	}
	logger.Infof("enriched market %q: %d key facts, %d events",
		text.Truncate(enriched.Question, 50), len(enriched.KeyFacts), len(enriched.RecentEvents))
	return enriched, nil
}

func parseEnrichment(raw string) (EnrichedMarket, error) {
	body := strings.TrimSpace(raw)
	if !gjson.Valid(body) {
		extracted, ok := jsonutil.ExtractJSON(body)
		if !ok || !gjson.Valid(extracted) {
			return EnrichedMarket{}, &decision.ParseError{Source: "market_enricher", Raw: raw, Reason: "not valid JSON"}
		}
		body = extracted
	}
	if err := validateAgainst(enrichedSchema, body); err != nil {
		return EnrichedMarket{}, &decision.ValidationError{Source: "market_enricher", Field: "enrichment", Reason: err.Error()}
	}
	var out EnrichedMarket
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return EnrichedMarket{}, &decision.ParseError{Source: "market_enricher", Raw: raw, Reason: err.Error()}
	}
	out.fillDefaults(gjson.Get(body, "sentiment_indicators").IsObject())
	return out, nil
}

func (e *EnrichedMarket) fillDefaults(hasSentiment bool) {
	if e.KeyFacts == nil {
		e.KeyFacts = []string{}
	}
	if e.RecentEvents == nil {
		e.RecentEvents = []string{}
	}
	if e.HistoricalContext == nil {
		e.HistoricalContext = []string{}
	}
	if e.RelevantLinks == nil {
		e.RelevantLinks = []string{}
	}
	if e.PriceDrivers == nil {
		e.PriceDrivers = []string{}
	}
	if e.Datasets == nil {
		e.Datasets = map[string]any{}
	}
	if !hasSentiment {
		e.SentimentIndicators = SentimentIndicators{Bullish: 0.33, Bearish: 0.33, Neutral: 0.34}
		return
	}
	e.SentimentIndicators = e.SentimentIndicators.Normalize()
}

// Normalize scales the indicators to sum to 1; an all-zero set is unchanged.
func (s SentimentIndicators) Normalize() SentimentIndicators {
	total := s.Bullish + s.Bearish + s.Neutral
	if total <= 0 {
		return s
	}
	return SentimentIndicators{Bullish: s.Bullish / total, Bearish: s.Bearish / total, Neutral: s.Neutral / total}
}

func formatNumber(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

const enricherSystem = "You are a research analyst preparing trading research on prediction markets. Answer with JSON only."

const enricherUserTemplate = `Research this Polymarket market and provide enriched data for trading analysis.

MARKET INFORMATION:
Question: %s
Condition ID: %s
Current Prices: %s
Volume: %s
Liquidity: %s
End Date: %s
Active: %t
Closed: %t

RESEARCH TASKS:
1. Key facts and data points relevant to this market
2. Recent news, events or developments that could affect the outcome
3. Historical context: similar past events and patterns
4. Data sources, links or APIs worth monitoring
5. Sentiment indicators (bullish/bearish/neutral)
6. Key price drivers

Return a JSON object in this exact format:
{
  "market_id": %q,
  "question": %q,
  "condition_id": %q,
  "key_facts": ["fact 1", "fact 2"],
  "recent_events": ["event 1"],
  "historical_context": ["context 1"],
  "relevant_links": ["url1"],
  "sentiment_indicators": {"bullish": 0.6, "bearish": 0.2, "neutral": 0.2},
  "price_drivers": ["driver 1"],
  "datasets": {"suggested_apis": ["api1"], "monitoring_keywords": ["keyword1"]}
}

sentiment_indicators must sum to 1.0. Include real, verifiable facts and events.`
