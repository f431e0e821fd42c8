// Package service orchestrates one decision run: validate, run the agents,
// debate, aggregate, respond, then record and publish without failing the run.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"evergreen/internal/decision"
	"evergreen/internal/logger"
	"evergreen/internal/metrics"
	"evergreen/internal/selection"
	"evergreen/internal/store"
	"evergreen/internal/types"
)

const defaultPersistTimeout = 10 * time.Second

// AgentRunner produces the five initial outputs.
type AgentRunner interface {
	Run(ctx context.Context, market types.MarketData, data types.AgentData) ([]decision.AgentOutput, error)
}

// DebateRound revises the outputs, falling back to them on failure.
type DebateRound interface {
	Round(ctx context.Context, initial []decision.AgentOutput) ([]decision.AgentOutput, bool)
}

// MarketSelector supplies a market when the request has none.
type MarketSelector interface {
	Best(ctx context.Context) (selection.Result, error)
}

// Publisher receives every recorded run. Implementations must not block
// for long and must swallow their own errors.
type Publisher interface {
	Publish(ctx context.Context, rec store.DecisionRecord)
}

// SelectionError wraps a failed market selection.
type SelectionError struct {
	Err error
}

func (e *SelectionError) Error() string {
	if errors.Is(e.Err, selection.ErrNoMarkets) {
		return "Market selection failed: No suitable markets found"
	}
	return e.Err.Error()
}

func (e *SelectionError) Unwrap() error { return e.Err }

type Options struct {
	Runner    AgentRunner
	Debate    DebateRound
	Recorder  store.Recorder
	Publisher Publisher
	Selector  MarketSelector
	// PersistTimeout bounds the record write; 0 means 10s.
	PersistTimeout time.Duration
	Now            func() time.Time
	NewID          func() string
}

type Service struct {
	opts Options
}

func New(opts Options) *Service {
	if opts.Recorder == nil {
		opts.Recorder = store.Nop{}
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{opts: opts}
}

// Handle is the entry point for raw request bodies. When the body carries no
// market (or no data) the market selector runs first. The returned error is
// non-nil exactly when the response status is "error".
func (s *Service) Handle(ctx context.Context, body []byte) (Response, error) {
	req, err := ParseRequest(body)
	if err != nil {
		return s.fail(err)
	}
	if !req.NeedsSelection() {
		return s.Process(ctx, req, nil)
	}
	picked, err := s.Select(ctx)
	if err != nil {
		return s.fail(err)
	}
	logger.Infof("selected market %s: %s", picked.Market.Symbol, picked.Enriched.Question)
	return s.Process(ctx, Request{Market: &picked.Market, Data: &picked.Data}, &picked)
}

// Select runs market selection only.
func (s *Service) Select(ctx context.Context) (selection.Result, error) {
	if s.opts.Selector == nil {
		return selection.Result{}, &SelectionError{Err: fmt.Errorf("market selection is not configured: %w", selection.ErrNoMarkets)}
	}
	picked, err := s.opts.Selector.Best(ctx)
	if err != nil {
		return selection.Result{}, &SelectionError{Err: err}
	}
	return picked, nil
}

// Process runs the pipeline for a validated request. sel is recorded with the
// decision when the market came from market selection.
func (s *Service) Process(ctx context.Context, req Request, sel *selection.Result) (Response, error) {
	start := s.opts.Now()
	if err := req.Validate(); err != nil {
		return s.fail(err)
	}
	market, data := *req.Market, *req.Data
	id := s.opts.NewID()
	logger.Infof("decision %s: running agents for %s", id, market.Symbol)

	agentsStart := time.Now()
	initial, err := s.opts.Runner.Run(ctx, market, data)
	metrics.ObserveStage("agents", agentsStart)
	if err != nil {
		return s.fail(fmt.Errorf("agent run failed: %w", err))
	}

	debateStart := time.Now()
	final, applied := s.debate(ctx, initial)
	metrics.ObserveStage("debate", debateStart)

	consensus, err := decision.Aggregate(final)
	if err != nil {
		return s.fail(err)
	}
	confidence := decision.WeightedConfidence(final)
	logger.Infof("decision %s: consensus %s size=%.2f confidence=%.1f debate_applied=%t",
		id, consensus.Direction, consensus.Size, confidence, applied)

	participants := make([]string, 0, len(final))
	for _, o := range final {
		participants = append(participants, o.Agent)
	}
	logs := store.ConversationLogs{
		InitialDecisions: initial,
		DebateRound:      store.DebateRound{Timestamp: start.UTC(), Participants: participants, Revised: applied},
		FinalDecisions:   final,
	}
	resp := Response{
		Status:     StatusOK,
		DecisionID: id,
		InvestmentDecision: &InvestmentDecision{
			Direction:  consensus.Direction,
			Size:       consensus.Size,
			Confidence: confidence,
			Summary:    consensus.Reasoning,
		},
		AgentAnalysis:    analysisOf(final),
		ConversationLogs: &logs,
		MarketInfo:       marketInfoOf(market),
	}

	rec := buildRecord(id, start, market, consensus, confidence, logs, sel)
	raw, err := json.Marshal(resp)
	if err != nil {
		logger.Warnf("decision %s: marshal response for record: %v", id, err)
	} else {
		rec.RawJSON = string(raw)
	}
	s.persist(ctx, rec)
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(ctx, rec)
	}

	metrics.DecisionsTotal.WithLabelValues(StatusOK).Inc()
	metrics.ConsensusDirection.WithLabelValues(string(consensus.Direction)).Inc()
	metrics.ObserveStage("total", start)
	return resp, nil
}

func (s *Service) debate(ctx context.Context, initial []decision.AgentOutput) ([]decision.AgentOutput, bool) {
	if s.opts.Debate == nil {
		metrics.DebateOutcomes.WithLabelValues("fallback").Inc()
		return initial, false
	}
	final, applied := s.opts.Debate.Round(ctx, initial)
	outcome := "fallback"
	if applied {
		outcome = "applied"
	}
	metrics.DebateOutcomes.WithLabelValues(outcome).Inc()
	return final, applied
}

// persist never fails the run; the record write gets its own deadline so a
// cancelled request still leaves an audit row.
func (s *Service) persist(ctx context.Context, rec store.DecisionRecord) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()
	if err := s.opts.Recorder.Save(saveCtx, rec); err != nil {
		metrics.SinkFailures.WithLabelValues("store").Inc()
		logger.Errorf("decision %s: storing record failed (non-fatal): %v", rec.DecisionID, err)
		return
	}
	logger.Debugf("decision %s: record stored", rec.DecisionID)
}

func (s *Service) fail(err error) (Response, error) {
	metrics.DecisionsTotal.WithLabelValues(StatusError).Inc()
	logger.Errorf("decision run failed: %v", err)
	return errorResponse(err), err
}

func buildRecord(id string, ts time.Time, market types.MarketData, c decision.ConsensusDecision, confidence float64,
	logs store.ConversationLogs, sel *selection.Result) store.DecisionRecord {
	rec := store.DecisionRecord{
		DecisionID:          id,
		Timestamp:           ts.UTC(),
		MarketSymbol:        market.Symbol,
		MarketQuestion:      market.Question,
		MarketPrice:         market.Price,
		MarketVolume24h:     market.Volume24h,
		MarketCap:           market.MarketCap,
		ConsensusDirection:  c.Direction,
		ConsensusSize:       c.Size,
		ConsensusReasoning:  c.Reasoning,
		ConsensusConfidence: confidence,
		AgentDecisions:      store.PairDecisions(logs.InitialDecisions, logs.FinalDecisions),
		ConversationLogs:    logs,
	}
	if sel != nil {
		rec.MarketSelection = selectionOf(*sel)
	}
	return rec
}

func selectionOf(sel selection.Result) *store.MarketSelection {
	out := &store.MarketSelection{
		SelectedMarketID: sel.Selected.ConditionID,
		MarketQuestion:   sel.Enriched.Question,
	}
	if out.SelectedMarketID == "" {
		out.SelectedMarketID = sel.Selected.MarketID
	}
	if out.MarketQuestion == "" {
		out.MarketQuestion = sel.Selected.MarketQuestion
	}
	if raw, err := json.Marshal(sel.Enriched); err == nil {
		out.EnrichmentData = raw
	}
	return out
}
