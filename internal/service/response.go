package service

import (
	"evergreen/internal/decision"
	"evergreen/internal/store"
	"evergreen/internal/types"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Response is the JSON body returned to callers of a decision run.
type Response struct {
	Status             string                  `json:"status"`
	DecisionID         string                  `json:"decision_id,omitempty"`
	InvestmentDecision *InvestmentDecision     `json:"investment_decision,omitempty"`
	AgentAnalysis      []AgentAnalysis         `json:"agent_analysis,omitempty"`
	ConversationLogs   *store.ConversationLogs `json:"conversation_logs,omitempty"`
	MarketInfo         *MarketInfo             `json:"market_info,omitempty"`
	Error              string                  `json:"error,omitempty"`
}

type InvestmentDecision struct {
	Direction  decision.Direction `json:"direction"`
	Size       float64            `json:"size"`
	Confidence float64            `json:"confidence"`
	// Summary is the four-sentence consensus narrative.
	Summary string `json:"summary"`
}

type AgentAnalysis struct {
	AgentName  string             `json:"agent_name"`
	Direction  decision.Direction `json:"direction"`
	Confidence float64            `json:"confidence"`
	Size       float64            `json:"size"`
	Reasoning  string             `json:"reasoning"`
}

type MarketInfo struct {
	Symbol    string  `json:"symbol"`
	Question  string  `json:"question,omitempty"`
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume24h,omitempty"`
	MarketCap float64 `json:"marketCap,omitempty"`
}

func errorResponse(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}

func analysisOf(outputs []decision.AgentOutput) []AgentAnalysis {
	out := make([]AgentAnalysis, 0, len(outputs))
	for _, o := range outputs {
		out = append(out, AgentAnalysis{
			AgentName:  o.Agent,
			Direction:  o.Decision.Direction,
			Confidence: o.Decision.Confidence,
			Size:       o.Decision.Size,
			Reasoning:  o.Decision.Reasoning,
		})
	}
	return out
}

func marketInfoOf(m types.MarketData) *MarketInfo {
	return &MarketInfo{
		Symbol:    m.Symbol,
		Question:  m.Question,
		Price:     m.Price,
		Volume24h: m.Volume24h,
		MarketCap: m.MarketCap,
	}
}
