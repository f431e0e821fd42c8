package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"evergreen/internal/decision"
	"evergreen/internal/gateway/provider"
	"evergreen/internal/logger"
	"evergreen/internal/pkg/jsonutil"
)

const defaultCandidateLimit = 50

// SelectedMarket is one pick returned by the selector model.
type SelectedMarket struct {
	MarketID       string  `json:"market_id"`
	MarketQuestion string  `json:"market_question"`
	ConditionID    string  `json:"condition_id"`
	Reasoning      string  `json:"reasoning"`
	Confidence     float64 `json:"confidence"`
	ExpectedValue  float64 `json:"expected_value,omitempty"`
	LiquidityScore float64 `json:"liquidity_score,omitempty"`
}

// Selector asks a model to rank candidate markets.
type Selector struct {
	model          decision.Completer
	candidateLimit int
}

func NewSelector(model decision.Completer, candidateLimit int) *Selector {
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	return &Selector{model: model, candidateLimit: candidateLimit}
}

type candidateSummary struct {
	Question    string           `json:"question"`
	ConditionID string           `json:"conditionId"`
	Slug        string           `json:"slug,omitempty"`
	Volume      float64          `json:"volume"`
	Liquidity   float64          `json:"liquidity"`
	EndDate     string           `json:"endDate,omitempty"`
	Active      bool             `json:"active"`
	Closed      bool             `json:"closed"`
	Outcomes    []outcomeSummary `json:"outcomes,omitempty"`
}

type outcomeSummary struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Candidates returns the top markets by volume, at most limit of them.
func Candidates(markets []Market, limit int) []Market {
	sorted := append([]Market(nil), markets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Volume > sorted[j].Volume })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func (s *Selector) Select(ctx context.Context, markets []Market, topN int) ([]SelectedMarket, error) {
	if s.model == nil {
		return nil, fmt.Errorf("selector: no model configured")
	}
	if topN <= 0 {
		topN = 1
	}
	candidates := Candidates(markets, s.candidateLimit)
	summary := make([]candidateSummary, 0, len(candidates))
	for _, m := range candidates {
		cs := candidateSummary{
			Question:    m.Question,
			ConditionID: m.ConditionID,
			Slug:        m.Slug,
			Volume:      m.Volume,
			Liquidity:   m.Liquidity,
			EndDate:     m.EndDate,
			Active:      m.Active,
			Closed:      m.Closed,
		}
		for _, o := range m.Outcomes {
			cs.Outcomes = append(cs.Outcomes, outcomeSummary{Name: o.Name, Price: o.Price})
		}
		summary = append(summary, cs)
	}
	listing, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("selector: marshal candidates: %w", err)
	}

	raw, err := s.model.Call(ctx, provider.ChatPayload{
		System:     selectorSystem,
		User:       fmt.Sprintf(selectorUserTemplate, topN, string(listing), topN),
		ExpectJSON: true,
		Purpose:    "market_selector",
	})
	if err != nil {
		return nil, &decision.CompletionError{Model: s.model.ID(), Purpose: "market_selector", Err: err}
	}
	picked, err := parseSelection(raw)
	if err != nil {
		return nil, err
	}
	logger.Infof("market selector picked %d of %d candidates", len(picked), len(markets))
	if len(picked) > topN {
		picked = picked[:topN]
	}
	return picked, nil
}

func parseSelection(raw string) ([]SelectedMarket, error) {
	text := strings.TrimSpace(raw)
	if !gjson.Valid(text) {
		extracted, ok := jsonutil.ExtractJSON(text)
		if !ok || !gjson.Valid(extracted) {
			return nil, &decision.ParseError{Source: "market_selector", Raw: raw, Reason: "not valid JSON"}
		}
		text = extracted
	}
	res := gjson.Parse(text)
	var items []gjson.Result
	switch {
	case res.IsArray():
		items = res.Array()
	case res.IsObject() && res.Get("market_id").Exists():
		items = []gjson.Result{res}
	default:
		arr, ok := marketArray(res)
		if !ok {
			return nil, &decision.ParseError{Source: "market_selector", Raw: raw, Reason: "response must be an array"}
		}
		items = arr.Array()
	}
	out := make([]SelectedMarket, 0, len(items))
	for i, item := range items {
		if err := validateAgainst(selectedSchema, item.Raw); err != nil {
			return nil, &decision.ValidationError{Source: fmt.Sprintf("market_selector[%d]", i), Field: "market", Reason: err.Error()}
		}
		var sm SelectedMarket
		if err := json.Unmarshal([]byte(item.Raw), &sm); err != nil {
			return nil, &decision.ParseError{Source: "market_selector", Raw: item.Raw, Reason: err.Error()}
		}
		out = append(out, sm)
	}
	return out, nil
}

const selectorSystem = "You are a professional prediction market analyst. You rank Polymarket markets by tradeable edge and answer with JSON only."

const selectorUserTemplate = `Analyze the following Polymarket markets and select the %d best trading opportunity.

CRITERIA FOR SELECTION:
1. Information Edge: can external data or insight give an advantage others miss?
2. Liquidity: enough volume and liquidity for sizeable positions
3. Time Horizon: resolution neither imminent nor too distant
4. Market Clarity: well-defined resolution criteria
5. Expected Value: positive expected value at current prices
6. Market Inefficiency: price looks mispriced relative to fundamentals

MARKETS TO ANALYZE:
%s

Return {"markets": [...]} holding exactly %d selected market(s), each shaped as:
{
  "market_id": "condition_id_or_slug",
  "market_question": "full question text",
  "condition_id": "condition_id",
  "reasoning": "why this market is attractive",
  "confidence": 0.85,
  "expected_value": 0.15,
  "liquidity_score": 0.8
}

confidence, expected_value and liquidity_score are fractions between 0 and 1.`
