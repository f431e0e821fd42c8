// Package selection picks a Polymarket market for the decision pipeline when
// the caller supplies none: fetch, filter, LLM select, LLM enrich, transform.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"evergreen/internal/logger"
	"evergreen/internal/pkg/convert"
	"evergreen/internal/types"
)

const defaultPolymarketURL = "https://clob.polymarket.com"

// Market is a Polymarket listing read tolerantly from the CLOB feed; field
// names vary between endpoints so each value has several source keys.
type Market struct {
	Question    string          `json:"question"`
	QuestionID  string          `json:"question_id,omitempty"`
	Slug        string          `json:"market_slug,omitempty"`
	ConditionID string          `json:"condition_id"`
	EndDate     string          `json:"end_date_iso,omitempty"`
	Description string          `json:"description,omitempty"`
	Active      bool            `json:"active"`
	Closed      bool            `json:"closed"`
	Archived    bool            `json:"archived"`
	Volume      float64         `json:"volume,omitempty"`
	Liquidity   float64         `json:"liquidity,omitempty"`
	Outcomes    []types.Outcome `json:"outcomes,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// Source lists candidate markets.
type Source interface {
	FetchMarkets(ctx context.Context) ([]Market, error)
}

// PolymarketClient reads GET {base}/markets.
type PolymarketClient struct {
	client *resty.Client
}

func NewPolymarketClient(baseURL string, timeout time.Duration) *PolymarketClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultPolymarketURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	return &PolymarketClient{client: client}
}

func (c *PolymarketClient) FetchMarkets(ctx context.Context) ([]Market, error) {
	resp, err := c.client.R().SetContext(ctx).Get("/markets")
	if err != nil {
		return nil, fmt.Errorf("polymarket: fetch markets: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("polymarket: API error: %d %s", resp.StatusCode(), strings.TrimSpace(resp.Status()))
	}
	markets, err := ParseMarkets(resp.Body())
	if err != nil {
		return nil, err
	}
	logger.Debugf("polymarket fetched %d markets", len(markets))
	return markets, nil
}

// ParseMarkets accepts a bare array or an object whose data, markets or
// results field (or failing that, first array field) holds the list.
func ParseMarkets(body []byte) ([]Market, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("polymarket: response is not valid JSON")
	}
	list, ok := marketArray(gjson.ParseBytes(body))
	if !ok {
		return nil, fmt.Errorf("polymarket: unexpected response format")
	}
	out := make([]Market, 0, len(list.Array()))
	list.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			out = append(out, decodeMarket(item))
		}
		return true
	})
	return out, nil
}

func marketArray(res gjson.Result) (gjson.Result, bool) {
	if res.IsArray() {
		return res, true
	}
	if !res.IsObject() {
		return gjson.Result{}, false
	}
	for _, key := range []string{"data", "markets", "results"} {
		if v := res.Get(key); v.IsArray() {
			return v, true
		}
	}
	var found gjson.Result
	res.ForEach(func(_, v gjson.Result) bool {
		if v.IsArray() {
			found = v
			return false
		}
		return true
	})
	return found, found.IsArray()
}

func decodeMarket(obj gjson.Result) Market {
	return Market{
		Question:    convert.FirstString(obj, "question"),
		QuestionID:  convert.FirstString(obj, "question_id", "questionId"),
		Slug:        convert.FirstString(obj, "market_slug", "slug"),
		ConditionID: convert.FirstString(obj, "condition_id", "conditionId"),
		EndDate:     convert.FirstString(obj, "end_date_iso", "endDate", "end_date"),
		Description: convert.FirstString(obj, "description"),
		Active:      obj.Get("active").Bool(),
		Closed:      obj.Get("closed").Bool(),
		Archived:    obj.Get("archived").Bool(),
		Volume:      convert.FirstFloat(obj, "volume", "total_volume"),
		Liquidity:   convert.FirstFloat(obj, "liquidity", "total_liquidity"),
		Outcomes:    decodeOutcomes(obj),
		Raw:         json.RawMessage(obj.Raw),
	}
}

// The CLOB feed carries prices under tokens[{outcome,price}]; other feeds
// use outcomes[{name,price,volume}].
func decodeOutcomes(obj gjson.Result) []types.Outcome {
	var out []types.Outcome
	if arr := obj.Get("outcomes"); arr.IsArray() {
		arr.ForEach(func(_, o gjson.Result) bool {
			if o.IsObject() {
				out = append(out, types.Outcome{
					Name:   convert.FirstString(o, "name", "outcome"),
					Price:  convert.FirstFloat(o, "price"),
					Volume: convert.FirstFloat(o, "volume"),
				})
			}
			return true
		})
	}
	if len(out) > 0 {
		return out
	}
	if arr := obj.Get("tokens"); arr.IsArray() {
		arr.ForEach(func(_, o gjson.Result) bool {
			if o.IsObject() {
				out = append(out, types.Outcome{
					Name:  convert.FirstString(o, "outcome", "name"),
					Price: convert.FirstFloat(o, "price"),
				})
			}
			return true
		})
	}
	return out
}
