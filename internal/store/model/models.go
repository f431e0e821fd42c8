package model

import (
	"time"

	"gorm.io/datatypes"
)

// DecisionModel maps to the 'investment_decisions' table.
type DecisionModel struct {
	DecisionID          string         `gorm:"column:decision_id;primaryKey"`
	Timestamp           time.Time      `gorm:"column:timestamp;index"`
	MarketSymbol        string         `gorm:"column:market_symbol;index"`
	MarketQuestion      string         `gorm:"column:market_question"`
	MarketPrice         float64        `gorm:"column:market_price"`
	MarketVolume24h     float64        `gorm:"column:market_volume24h"`
	MarketCap           float64        `gorm:"column:market_cap"`
	ConsensusDirection  string         `gorm:"column:consensus_direction"`
	ConsensusSize       float64        `gorm:"column:consensus_size"`
	ConsensusReasoning  string         `gorm:"column:consensus_reasoning;type:TEXT"`
	ConsensusConfidence float64        `gorm:"column:consensus_confidence"`
	AgentDecisions      datatypes.JSON `gorm:"column:agent_decisions;type:TEXT"`
	ConversationLogs    datatypes.JSON `gorm:"column:conversation_logs;type:TEXT"`
	MarketSelection     datatypes.JSON `gorm:"column:market_selection;type:TEXT"`
	RawJSON             string         `gorm:"column:raw_json;type:TEXT"`
	CreatedAtUnix       int64          `gorm:"column:created_at"`
}

func (DecisionModel) TableName() string { return "investment_decisions" }
