package selection

import (
	"encoding/json"
	"strings"

	"evergreen/internal/types"
)

const (
	defaultOutcomePrice = 0.5
	trendThreshold      = 0.2
)

// YesPrice picks the price of the outcome named yes/true (or the first priced
// above 0.5), else the first outcome, else 0.5. Zero prices fall through.
func YesPrice(outcomes []types.Outcome) float64 {
	for _, o := range outcomes {
		name := strings.ToLower(o.Name)
		if strings.Contains(name, "yes") || strings.Contains(name, "true") || o.Price > 0.5 {
			if o.Price != 0 {
				return o.Price
			}
			break
		}
	}
	if len(outcomes) > 0 && outcomes[0].Price != 0 {
		return outcomes[0].Price
	}
	return defaultOutcomePrice
}

// ToMarketData maps an enriched market onto the pipeline's market input.
func ToMarketData(e EnrichedMarket, m Market) types.MarketData {
	return types.MarketData{
		Symbol:    e.ConditionID,
		Price:     YesPrice(m.Outcomes),
		Volume24h: m.Volume,
		MarketCap: m.Liquidity,
		Question:  e.Question,
		MarketID:  e.MarketID,
		EndDate:   m.EndDate,
		Outcomes:  m.Outcomes,
	}
}

// SentimentFrom derives a score in [-1,1] and a trend label from indicators.
func SentimentFrom(s SentimentIndicators) types.Sentiment {
	score := s.Bullish - s.Bearish
	trend := "neutral"
	switch {
	case score > trendThreshold:
		trend = "bullish"
	case score < -trendThreshold:
		trend = "bearish"
	}
	return types.Sentiment{SocialScore: score, NewsScore: score, Trend: trend}
}

// ToAgentData builds the auxiliary bundle, embedding the market snapshot and
// research lists.
func ToAgentData(e EnrichedMarket, m Market) types.AgentData {
	sentiment := SentimentFrom(e.SentimentIndicators)
	snapshot, _ := json.Marshal(ToMarketData(e, m))
	outcomes := m.Outcomes
	if outcomes == nil {
		outcomes = []types.Outcome{}
	}
	return types.AgentData{
		Sentiment:         &sentiment,
		MarketData:        snapshot,
		KeyFacts:          e.KeyFacts,
		RecentEvents:      e.RecentEvents,
		HistoricalContext: e.HistoricalContext,
		PriceDrivers:      e.PriceDrivers,
		RelevantLinks:     e.RelevantLinks,
		Datasets:          e.Datasets,
		Polymarket: &types.PolymarketMeta{
			ConditionID: e.ConditionID,
			Volume:      m.Volume,
			Liquidity:   m.Liquidity,
			Outcomes:    outcomes,
			Active:      m.Active,
			Closed:      m.Closed,
		},
	}
}
