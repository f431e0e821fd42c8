package store

import (
	"encoding/json"
	"time"

	"evergreen/internal/decision"
)

// DecisionRecord is the audit trail of one completed run.
type DecisionRecord struct {
	DecisionID          string                `json:"decision_id"`
	Timestamp           time.Time             `json:"timestamp"`
	MarketSymbol        string                `json:"market_symbol"`
	MarketQuestion      string                `json:"market_question,omitempty"`
	MarketPrice         float64               `json:"market_price"`
	MarketVolume24h     float64               `json:"market_volume24h,omitempty"`
	MarketCap           float64               `json:"market_cap,omitempty"`
	ConsensusDirection  decision.Direction    `json:"consensus_direction"`
	ConsensusSize       float64               `json:"consensus_size"`
	ConsensusReasoning  string                `json:"consensus_reasoning"`
	ConsensusConfidence float64               `json:"consensus_confidence"`
	AgentDecisions      []AgentDecisionRecord `json:"agent_decisions"`
	ConversationLogs    ConversationLogs      `json:"conversation_logs"`
	MarketSelection     *MarketSelection      `json:"market_selection,omitempty"`
	// RawJSON is the serialized API response for the run.
	RawJSON string `json:"raw_json"`
}

// AgentDecisionRecord pairs an agent's initial and post-debate decision.
type AgentDecisionRecord struct {
	AgentName         string             `json:"agent_name"`
	InitialDirection  decision.Direction `json:"initial_direction"`
	InitialConfidence float64            `json:"initial_confidence"`
	InitialSize       float64            `json:"initial_size"`
	InitialReasoning  string             `json:"initial_reasoning"`
	FinalDirection    decision.Direction `json:"final_direction"`
	FinalConfidence   float64            `json:"final_confidence"`
	FinalSize         float64            `json:"final_size"`
	FinalReasoning    string             `json:"final_reasoning"`
}

type ConversationLogs struct {
	InitialDecisions []decision.AgentOutput `json:"initial_decisions"`
	DebateRound      DebateRound            `json:"debate_round"`
	FinalDecisions   []decision.AgentOutput `json:"final_decisions"`
}

type DebateRound struct {
	Timestamp    time.Time `json:"timestamp"`
	Participants []string  `json:"participants"`
	Revised      bool      `json:"revised"`
}

// MarketSelection records which market the selector picked, when it ran.
type MarketSelection struct {
	SelectedMarketID string          `json:"selected_market_id,omitempty"`
	MarketQuestion   string          `json:"market_question,omitempty"`
	EnrichmentData   json.RawMessage `json:"enrichment_data,omitempty"`
}

// PairDecisions matches each final output to the initial one with the same
// agent name. An agent missing from initial reuses its final decision.
func PairDecisions(initial, final []decision.AgentOutput) []AgentDecisionRecord {
	byName := make(map[string]decision.AgentDecision, len(initial))
	for _, o := range initial {
		byName[o.Agent] = o.Decision
	}
	out := make([]AgentDecisionRecord, 0, len(final))
	for _, f := range final {
		first, ok := byName[f.Agent]
		if !ok {
			first = f.Decision
		}
		out = append(out, AgentDecisionRecord{
			AgentName:         f.Agent,
			InitialDirection:  first.Direction,
			InitialConfidence: first.Confidence,
			InitialSize:       first.Size,
			InitialReasoning:  first.Reasoning,
			FinalDirection:    f.Decision.Direction,
			FinalConfidence:   f.Decision.Confidence,
			FinalSize:         f.Decision.Size,
			FinalReasoning:    f.Decision.Reasoning,
		})
	}
	return out
}
