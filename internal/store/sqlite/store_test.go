package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"evergreen/internal/decision"
	"evergreen/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id string, ts time.Time) store.DecisionRecord {
	initial := []decision.AgentOutput{{Agent: "QuantAgent", Decision: decision.AgentDecision{Direction: decision.DirectionNo, Confidence: 40, Reasoning: "a"}}}
	final := []decision.AgentOutput{{Agent: "QuantAgent", Decision: decision.AgentDecision{Direction: decision.DirectionYes, Confidence: 70, Size: 1000, Reasoning: "b"}}}
	return store.DecisionRecord{
		DecisionID:          id,
		Timestamp:           ts,
		MarketSymbol:        "BTC-TEST",
		MarketQuestion:      "Will BTC close above 50k?",
		MarketPrice:         50000,
		ConsensusDirection:  decision.DirectionYes,
		ConsensusSize:       1000,
		ConsensusReasoning:  "r",
		ConsensusConfidence: 70,
		AgentDecisions:      store.PairDecisions(initial, final),
		ConversationLogs: store.ConversationLogs{
			InitialDecisions: initial,
			DebateRound:      store.DebateRound{Timestamp: ts, Participants: []string{"QuantAgent"}, Revised: true},
			FinalDecisions:   final,
		},
		MarketSelection: &store.MarketSelection{SelectedMarketID: "0xabc", EnrichmentData: json.RawMessage(`{"key_facts":["x"]}`)},
		RawJSON:         `{"status":"ok"}`,
	}
}

func TestSqliteStoreRoundTrip(t *testing.T) {
	s, err := NewSqliteStore(filepath.Join(t.TempDir(), "nested", "decisions.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Save(ctx, sampleRecord("a", base)))
	require.NoError(t, s.Save(ctx, sampleRecord("b", base.Add(time.Minute))))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "BTC-TEST", got.MarketSymbol)
	assert.Equal(t, decision.DirectionYes, got.ConsensusDirection)
	require.Len(t, got.AgentDecisions, 1)
	assert.Equal(t, decision.DirectionNo, got.AgentDecisions[0].InitialDirection)
	assert.Equal(t, decision.DirectionYes, got.AgentDecisions[0].FinalDirection)
	assert.True(t, got.ConversationLogs.DebateRound.Revised)
	require.NotNil(t, got.MarketSelection)
	assert.Equal(t, "0xabc", got.MarketSelection.SelectedMarketID)
	assert.True(t, base.Equal(got.Timestamp))

	recent, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].DecisionID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, s.Save(ctx, sampleRecord("a", base)), "records are write-once")
}

func TestNewSqliteStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewSqliteStore("  ")
	assert.Error(t, err)
}
