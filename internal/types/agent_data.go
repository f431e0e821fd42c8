package types

import "encoding/json"

// AgentData is the auxiliary bundle every persona sees for a run.
type AgentData struct {
	Portfolio      *Portfolio   `json:"portfolio,omitempty"`
	Sentiment      *Sentiment   `json:"sentiment,omitempty"`
	HistoricalData []PricePoint `json:"historicalData,omitempty"`

	// MarketData is free-form context rendered verbatim for the fundamental view.
	MarketData json.RawMessage `json:"marketData,omitempty"`

	KeyFacts          []string        `json:"keyFacts,omitempty"`
	RecentEvents      []string        `json:"recentEvents,omitempty"`
	HistoricalContext []string        `json:"historicalContext,omitempty"`
	PriceDrivers      []string        `json:"priceDrivers,omitempty"`
	RelevantLinks     []string        `json:"relevantLinks,omitempty"`
	Datasets          map[string]any  `json:"datasets,omitempty"`
	Polymarket        *PolymarketMeta `json:"polymarket,omitempty"`
}

type Sentiment struct {
	SocialScore float64 `json:"socialScore"`
	NewsScore   float64 `json:"newsScore"`
	Trend       string  `json:"trend"`
}

// PricePoint is one chronological history sample.
type PricePoint struct {
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

type PolymarketMeta struct {
	ConditionID string    `json:"conditionId"`
	Volume      float64   `json:"volume"`
	Liquidity   float64   `json:"liquidity"`
	Outcomes    []Outcome `json:"outcomes"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
}

// HasResearch reports whether any enrichment lists are populated.
func (d *AgentData) HasResearch() bool {
	if d == nil {
		return false
	}
	return len(d.KeyFacts)+len(d.RecentEvents)+len(d.HistoricalContext)+len(d.PriceDrivers) > 0
}
