package types

import (
	"encoding/json"
)

// MarketData is one tradeable opportunity. Only Symbol and Price are required;
// unknown JSON fields survive a decode/encode round trip through Extra.
type MarketData struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume24h float64   `json:"volume24h,omitempty"`
	MarketCap float64   `json:"marketCap,omitempty"`
	Question  string    `json:"question,omitempty"`
	MarketID  string    `json:"marketId,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
	Outcomes  []Outcome `json:"outcomes,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type Outcome struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume,omitempty"`
}

var marketKnownKeys = map[string]struct{}{
	"symbol": {}, "price": {}, "volume24h": {}, "marketCap": {}, "question": {},
	"marketId": {}, "endDate": {}, "outcomes": {},
}

type marketAlias MarketData

func (m *MarketData) UnmarshalJSON(b []byte) error {
	var base marketAlias
	if err := json.Unmarshal(b, &base); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if _, known := marketKnownKeys[k]; known {
			continue
		}
		if base.Extra == nil {
			base.Extra = make(map[string]json.RawMessage)
		}
		base.Extra[k] = v
	}
	*m = MarketData(base)
	return nil
}

func (m MarketData) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(marketAlias(m))
	if err != nil || len(m.Extra) == 0 {
		return b, err
	}
	merged := make(map[string]json.RawMessage, len(m.Extra)+8)
	for k, v := range m.Extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(b, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}
