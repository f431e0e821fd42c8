package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"evergreen/internal/decision"
	"evergreen/internal/gateway/provider"
	"evergreen/internal/persona"
	"evergreen/internal/selection"
	"evergreen/internal/store"
	"evergreen/internal/transport/ws"
	"evergreen/internal/types"
)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Save(ctx context.Context, rec store.DecisionRecord) error {
	return m.Called(ctx, rec).Error(0)
}

// scriptedModel answers each call by its purpose.
type scriptedModel struct {
	mu      sync.Mutex
	replies map[string]string
	calls   map[string]int
}

func newScriptedModel(replies map[string]string) *scriptedModel {
	return &scriptedModel{replies: replies, calls: map[string]int{}}
}

func (m *scriptedModel) ID() string { return "scripted" }

func (m *scriptedModel) Call(_ context.Context, p provider.ChatPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[p.Purpose]++
	reply, ok := m.replies[p.Purpose]
	if !ok {
		return "", fmt.Errorf("no reply scripted for %s", p.Purpose)
	}
	return reply, nil
}

func agentReply(dir string, conf, size float64) string {
	return fmt.Sprintf(`{"direction":%q,"confidence":%v,"size":%v,"reasoning":"One. Two. Three. Four."}`, dir, conf, size)
}

// Three YES votes sized 500/1500/1000 and two NO votes.
func threeYesReplies() map[string]string {
	return map[string]string{
		"FundamentalAgent": agentReply("YES", 80, 500),
		"QuantAgent":       agentReply("YES", 70, 1500),
		"SentimentAgent":   agentReply("NO", 60, 0),
		"RiskAgent":        agentReply("YES", 65, 1000),
		"StrategistAgent":  agentReply("NO", 55, 0),
		"debate":           "I would rather not revise anything.",
	}
}

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestService(model *scriptedModel, rec store.Recorder, pub Publisher, sel MarketSelector) *Service {
	gen := decision.NewGenerator(decision.GeneratorConfig{Default: model})
	return New(Options{
		Runner:    decision.NewRunner(gen, persona.Default()),
		Debate:    decision.NewDebater(model, 0),
		Recorder:  rec,
		Publisher: pub,
		Selector:  sel,
		Now:       func() time.Time { return fixedNow },
		NewID:     func() string { return "11111111-2222-3333-4444-555555555555" },
	})
}

const btcRequest = `{
  "market": {"symbol": "BTC-TEST", "price": 50000, "volume24h": 1000000, "marketCap": 1000000000},
  "data": {"portfolio": {"totalValue": 100000, "heat": 30, "positions": []},
           "sentiment": {"socialScore": 65, "newsScore": 70, "trend": "bullish"}}
}`

func TestHandleEndToEnd(t *testing.T) {
	model := newScriptedModel(threeYesReplies())
	rec := new(MockRecorder)
	var saved store.DecisionRecord
	rec.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(store.DecisionRecord)
	}).Return(nil).Once()

	svc := newTestService(model, rec, nil, nil)
	resp, err := svc.Handle(context.Background(), []byte(btcRequest))
	require.NoError(t, err)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", resp.DecisionID)
	require.NotNil(t, resp.InvestmentDecision)
	assert.Equal(t, decision.DirectionYes, resp.InvestmentDecision.Direction)
	assert.InDelta(t, 1000, resp.InvestmentDecision.Size, 1e-9)
	assert.InDelta(t, 68.75, resp.InvestmentDecision.Confidence, 1e-9)
	assert.Equal(t,
		"The consensus decision is to take a long position with a position size of $1,000 based on weighted analysis from 5 specialized AI agents. "+
			"3 agents recommend YES with an average confidence of 71.7%, while 2 agents recommend the opposite. "+
			"The FundamentalAgent shows the highest confidence at 80% and recommends YES, contributing significantly to the final decision. "+
			"This decision reflects a balanced evaluation across fundamental analysis, quantitative metrics, sentiment indicators, risk management, and strategic market structure considerations.",
		resp.InvestmentDecision.Summary)

	require.Len(t, resp.AgentAnalysis, 5)
	assert.Equal(t, "FundamentalAgent", resp.AgentAnalysis[0].AgentName)
	require.NotNil(t, resp.ConversationLogs)
	assert.Equal(t, resp.ConversationLogs.InitialDecisions, resp.ConversationLogs.FinalDecisions)
	assert.Equal(t, []string{"FundamentalAgent", "QuantAgent", "SentimentAgent", "RiskAgent", "StrategistAgent"},
		resp.ConversationLogs.DebateRound.Participants)
	assert.Equal(t, fixedNow, resp.ConversationLogs.DebateRound.Timestamp)
	assert.Equal(t, &MarketInfo{Symbol: "BTC-TEST", Price: 50000, Volume24h: 1000000, MarketCap: 1000000000}, resp.MarketInfo)

	assert.Equal(t, 1, model.calls["debate"])
	for _, name := range []string{"FundamentalAgent", "QuantAgent", "SentimentAgent", "RiskAgent", "StrategistAgent"} {
		assert.Equal(t, 1, model.calls[name], name)
	}

	rec.AssertExpectations(t)
	assert.Equal(t, resp.DecisionID, saved.DecisionID)
	assert.Equal(t, fixedNow, saved.Timestamp)
	assert.Equal(t, "BTC-TEST", saved.MarketSymbol)
	assert.Equal(t, decision.DirectionYes, saved.ConsensusDirection)
	assert.InDelta(t, 68.75, saved.ConsensusConfidence, 1e-9)
	assert.Len(t, saved.AgentDecisions, 5)
	assert.False(t, saved.ConversationLogs.DebateRound.Revised)
	assert.Nil(t, saved.MarketSelection)

	var raw Response
	require.NoError(t, json.Unmarshal([]byte(saved.RawJSON), &raw))
	assert.Equal(t, resp.DecisionID, raw.DecisionID)
	assert.Equal(t, resp.InvestmentDecision.Summary, raw.InvestmentDecision.Summary)
}

func TestProcessAppliesDebateRevision(t *testing.T) {
	replies := threeYesReplies()
	replies["debate"] = `{"decisions":[
	  {"agent":"FundamentalAgent","decision":{"direction":"YES","confidence":80,"size":500,"reasoning":"a. b. c. d."}},
	  {"agent":"QuantAgent","decision":{"direction":"YES","confidence":70,"size":1500,"reasoning":"a. b. c. d."}},
	  {"agent":"SentimentAgent","decision":{"direction":"YES","confidence":62,"size":2000,"reasoning":"a. b. c. d."}},
	  {"agent":"RiskAgent","decision":{"direction":"YES","confidence":65,"size":1000,"reasoning":"a. b. c. d."}},
	  {"agent":"StrategistAgent","decision":{"direction":"NO","confidence":55,"size":0,"reasoning":"a. b. c. d."}}]}`
	model := newScriptedModel(replies)
	rec := new(MockRecorder)
	var saved store.DecisionRecord
	rec.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(store.DecisionRecord)
	}).Return(nil)

	resp, err := newTestService(model, rec, nil, nil).Handle(context.Background(), []byte(btcRequest))
	require.NoError(t, err)
	assert.InDelta(t, 1250, resp.InvestmentDecision.Size, 1e-9)
	assert.Equal(t, decision.DirectionNo, resp.ConversationLogs.InitialDecisions[2].Decision.Direction)
	assert.Equal(t, decision.DirectionYes, resp.ConversationLogs.FinalDecisions[2].Decision.Direction)

	assert.True(t, saved.ConversationLogs.DebateRound.Revised)
	sentiment := saved.AgentDecisions[2]
	assert.Equal(t, "SentimentAgent", sentiment.AgentName)
	assert.Equal(t, decision.DirectionNo, sentiment.InitialDirection)
	assert.Equal(t, decision.DirectionYes, sentiment.FinalDirection)
	assert.Equal(t, 2000.0, sentiment.FinalSize)
}

func TestPersistenceFailureIsNonFatal(t *testing.T) {
	model := newScriptedModel(threeYesReplies())
	rec := new(MockRecorder)
	rec.On("Save", mock.Anything, mock.Anything).Return(errors.New("warehouse down")).Once()
	pub := &recordingPublisher{}

	resp, err := newTestService(model, rec, pub, nil).Handle(context.Background(), []byte(btcRequest))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	rec.AssertExpectations(t)
	require.Len(t, pub.records, 1)
	assert.Equal(t, resp.DecisionID, pub.records[0].DecisionID)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing price", `{"market":{"symbol":"X"},"data":{}}`, "Invalid request: market must include symbol and price"},
		{"string price", `{"market":{"symbol":"X","price":"1.0"},"data":{}}`, "Invalid request: market must include symbol and price"},
		{"empty symbol", `{"market":{"symbol":"","price":1},"data":{}}`, "Invalid request: market must include symbol and price"},
		{"data not object", `{"market":{"symbol":"X","price":1},"data":"none"}`, "Invalid request: data is required"},
		{"not json", `market=X`, "Invalid request: body must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newScriptedModel(threeYesReplies())
			rec := new(MockRecorder)
			resp, err := newTestService(model, rec, nil, nil).Handle(context.Background(), []byte(tt.body))
			require.Error(t, err)
			assert.True(t, IsRequestError(err))
			assert.Equal(t, StatusError, resp.Status)
			assert.Equal(t, tt.want, resp.Error)
			assert.Empty(t, resp.DecisionID)
			assert.Empty(t, model.calls)
			rec.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestProcessRejectsMissingData(t *testing.T) {
	svc := newTestService(newScriptedModel(nil), new(MockRecorder), nil, nil)
	resp, err := svc.Process(context.Background(), Request{Market: &types.MarketData{Symbol: "X", Price: 1}}, nil)
	require.ErrorIs(t, err, ErrMissingData)
	assert.Equal(t, "Invalid request: data is required", resp.Error)
}

func TestAgentFailureFailsRun(t *testing.T) {
	replies := threeYesReplies()
	replies["RiskAgent"] = `{"direction":"MAYBE","confidence":50,"size":0,"reasoning":"x"}`
	rec := new(MockRecorder)
	resp, err := newTestService(newScriptedModel(replies), rec, nil, nil).Handle(context.Background(), []byte(btcRequest))
	require.Error(t, err)
	assert.False(t, IsRequestError(err))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "RiskAgent")
	assert.Nil(t, resp.InvestmentDecision)
	rec.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOverflowingAgentSizeFailsRunCleanly(t *testing.T) {
	replies := threeYesReplies()
	replies["QuantAgent"] = `{"direction":"YES","confidence":70,"size":1e999,"reasoning":"One. Two. Three. Four."}`
	model := newScriptedModel(replies)
	rec := new(MockRecorder)

	var (
		resp Response
		err  error
	)
	require.NotPanics(t, func() {
		resp, err = newTestService(model, rec, nil, nil).Handle(context.Background(), []byte(btcRequest))
	})
	require.Error(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "size")
	assert.Zero(t, model.calls["debate"])
	rec.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOverflowingDebateSizeKeepsInitialVotes(t *testing.T) {
	replies := threeYesReplies()
	replies["debate"] = `{"decisions":[
	  {"agent":"FundamentalAgent","decision":{"direction":"YES","confidence":80,"size":1e999,"reasoning":"a. b. c. d."}},
	  {"agent":"QuantAgent","decision":{"direction":"YES","confidence":70,"size":1500,"reasoning":"a. b. c. d."}},
	  {"agent":"SentimentAgent","decision":{"direction":"NO","confidence":60,"size":0,"reasoning":"a. b. c. d."}},
	  {"agent":"RiskAgent","decision":{"direction":"YES","confidence":65,"size":1000,"reasoning":"a. b. c. d."}},
	  {"agent":"StrategistAgent","decision":{"direction":"NO","confidence":55,"size":0,"reasoning":"a. b. c. d."}}
	]}`
	rec := new(MockRecorder)
	rec.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	resp, err := newTestService(newScriptedModel(replies), rec, nil, nil).Handle(context.Background(), []byte(btcRequest))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.InDelta(t, 1000.0, resp.InvestmentDecision.Size, 1e-9)
}

type stubSelector struct {
	result selection.Result
	err    error
	calls  int
}

func (s *stubSelector) Best(context.Context) (selection.Result, error) {
	s.calls++
	return s.result, s.err
}

func TestHandleRunsSelectionWhenMarketMissing(t *testing.T) {
	sel := &stubSelector{result: selection.Result{
		Market:   types.MarketData{Symbol: "0xbtc", Price: 0.62, Question: "Will BTC close above 100k?"},
		Data:     types.AgentData{Sentiment: &types.Sentiment{SocialScore: 0.4, NewsScore: 0.4, Trend: "bullish"}},
		Selected: selection.SelectedMarket{MarketID: "btc-100k", MarketQuestion: "Will BTC close above 100k?", ConditionID: "0xbtc"},
		Enriched: selection.EnrichedMarket{MarketID: "btc-100k", Question: "Will BTC close above 100k?", ConditionID: "0xbtc", KeyFacts: []string{"f"}},
	}}
	rec := new(MockRecorder)
	var saved store.DecisionRecord
	rec.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(store.DecisionRecord)
	}).Return(nil)

	for _, body := range []string{`{}`, `{"market":{},"data":{}}`, `{"market":{"symbol":"X","price":1}}`} {
		resp, err := newTestService(newScriptedModel(threeYesReplies()), rec, nil, sel).Handle(context.Background(), []byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, "0xbtc", resp.MarketInfo.Symbol)
		assert.Equal(t, "Will BTC close above 100k?", resp.MarketInfo.Question)
	}
	assert.Equal(t, 3, sel.calls)
	require.NotNil(t, saved.MarketSelection)
	assert.Equal(t, "0xbtc", saved.MarketSelection.SelectedMarketID)
	assert.Equal(t, "Will BTC close above 100k?", saved.MarketSelection.MarketQuestion)
	assert.Contains(t, string(saved.MarketSelection.EnrichmentData), `"key_facts":["f"]`)
}

func TestSelectionFailureMessage(t *testing.T) {
	sel := &stubSelector{err: fmt.Errorf("selector returned no markets: %w", selection.ErrNoMarkets)}
	resp, err := newTestService(newScriptedModel(nil), new(MockRecorder), nil, sel).Handle(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, "Market selection failed: No suitable markets found", resp.Error)

	resp, _ = newTestService(newScriptedModel(nil), new(MockRecorder), nil, nil).Handle(context.Background(), []byte(`{}`))
	assert.Equal(t, "Market selection failed: No suitable markets found", resp.Error)

	sel.err = errors.New("polymarket: API error: 503")
	resp, _ = newTestService(newScriptedModel(nil), new(MockRecorder), nil, sel).Handle(context.Background(), []byte(`{}`))
	assert.Equal(t, "polymarket: API error: 503", resp.Error)
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []store.DecisionRecord
}

func (p *recordingPublisher) Publish(_ context.Context, rec store.DecisionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
}

type funcSink struct {
	name string
	fn   func(store.DecisionRecord) error
}

func (s funcSink) Name() string { return s.name }

func (s funcSink) Publish(_ context.Context, rec store.DecisionRecord) error { return s.fn(rec) }

type fakeHub struct {
	mu   sync.Mutex
	msgs []ws.Message
}

func (h *fakeHub) Broadcast(msg ws.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return true
}

type fakeNotifier struct {
	texts []string
}

func (n *fakeNotifier) SendText(_ context.Context, text string) error {
	n.texts = append(n.texts, text)
	return nil
}

func TestFanOutIsBestEffort(t *testing.T) {
	hub := &fakeHub{}
	note := &fakeNotifier{}
	var delivered sync.Map
	fan := NewFanOut(time.Second,
		funcSink{name: "broken", fn: func(store.DecisionRecord) error { return errors.New("down") }},
		funcSink{name: "ok", fn: func(r store.DecisionRecord) error { delivered.Store(r.DecisionID, true); return nil }},
		BroadcastSink(hub),
		NotifySink(note),
	)
	assert.Equal(t, []string{"broken", "ok", "websocket", "telegram"}, fan.Sinks())

	rec := store.DecisionRecord{
		DecisionID:         "d-9",
		MarketSymbol:       "BTC-TEST",
		ConsensusDirection: decision.DirectionYes,
		ConsensusSize:      1000,
		RawJSON:            `{"status":"ok"}`,
	}
	fan.Publish(context.Background(), rec)

	_, ok := delivered.Load("d-9")
	assert.True(t, ok)
	require.Len(t, hub.msgs, 1)
	assert.Equal(t, "decision", hub.msgs[0].Type)
	assert.JSONEq(t, `{"status":"ok"}`, string(hub.msgs[0].Payload))
	require.Len(t, note.texts, 1)
	assert.Contains(t, note.texts[0], "BTC-TEST YES $1,000")
}
