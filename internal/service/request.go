package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"evergreen/internal/types"
)

var (
	ErrMissingMarket = &RequestError{msg: "Invalid request: market must include symbol and price"}
	ErrMissingData   = &RequestError{msg: "Invalid request: data is required"}
	ErrMalformedBody = &RequestError{msg: "Invalid request: body must be a JSON object"}
)

// RequestError is a caller mistake; transports map it to 400.
type RequestError struct {
	msg string
}

func (e *RequestError) Error() string { return e.msg }

// IsRequestError reports whether err is a caller mistake.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// Request is a decoded {market, data} body. A market that is present but
// lacks a symbol or a numeric price is kept so validation can reject it.
type Request struct {
	Market *types.MarketData
	Data   *types.AgentData

	marketErr error
}

// ParseRequest decodes body. It only fails when body is not a JSON object or
// a present field cannot be decoded; missing fields surface from Validate.
func ParseRequest(body []byte) (Request, error) {
	if !gjson.ValidBytes(body) {
		return Request{}, ErrMalformedBody
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Request{}, ErrMalformedBody
	}

	var req Request
	if m := root.Get("market"); m.IsObject() && len(m.Map()) > 0 {
		sym, price := m.Get("symbol"), m.Get("price")
		if sym.Type != gjson.String || sym.Str == "" || price.Type != gjson.Number {
			req.marketErr = ErrMissingMarket
		}
		var market types.MarketData
		if err := json.Unmarshal([]byte(m.Raw), &market); err != nil {
			req.marketErr = ErrMissingMarket
		}
		req.Market = &market
	}
	if d := root.Get("data"); d.Exists() && d.Type != gjson.Null {
		if !d.IsObject() {
			return Request{}, ErrMissingData
		}
		var data types.AgentData
		if err := json.Unmarshal([]byte(d.Raw), &data); err != nil {
			return Request{}, &RequestError{msg: fmt.Sprintf("Invalid request: data: %v", err)}
		}
		req.Data = &data
	}
	return req, nil
}

// NeedsSelection is true when the caller left the market or data out and
// the market has to come from market selection.
func (r Request) NeedsSelection() bool {
	return r.Market == nil || r.Data == nil
}

func (r Request) Validate() error {
	if r.Market == nil || r.marketErr != nil || r.Market.Symbol == "" {
		return ErrMissingMarket
	}
	if r.Data == nil {
		return ErrMissingData
	}
	return nil
}
