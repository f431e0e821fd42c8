package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evergreen/internal/logger"
	"evergreen/internal/metrics"
	"evergreen/internal/types"
)

// ErrNoMarkets is returned when the pipeline produces nothing to analyse.
var ErrNoMarkets = errors.New("No suitable markets found")

// Result is one market prepared for the decision pipeline.
type Result struct {
	Market     types.MarketData `json:"market"`
	Data       types.AgentData  `json:"data"`
	Enriched   EnrichedMarket   `json:"enriched"`
	Selected   SelectedMarket   `json:"selected"`
	Polymarket Market           `json:"polymarket"`
}

type PipelineConfig struct {
	TopN       int
	LooseLimit int
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// Pipeline runs fetch, filter, select, enrich and transform.
type Pipeline struct {
	source   Source
	selector *Selector
	enricher *Enricher
	cfg      PipelineConfig
}

func NewPipeline(source Source, selector *Selector, enricher *Enricher, cfg PipelineConfig) *Pipeline {
	if cfg.TopN <= 0 {
		cfg.TopN = 1
	}
	if cfg.LooseLimit <= 0 {
		cfg.LooseLimit = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{source: source, selector: selector, enricher: enricher, cfg: cfg}
}

// Run returns up to TopN prepared markets. A selected market missing from the
// feed is skipped; an enrichment failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) ([]Result, error) {
	all, err := p.source.FetchMarkets(ctx)
	if err != nil {
		metrics.SelectionRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	active := ActiveMarkets(all, p.cfg.Now(), p.cfg.LooseLimit)
	logger.Infof("market selection: %d fetched, %d active", len(all), len(active))
	if len(active) == 0 {
		metrics.SelectionRuns.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("no active markets on polymarket: %w", ErrNoMarkets)
	}

	picked, err := p.selector.Select(ctx, active, p.cfg.TopN)
	if err != nil {
		metrics.SelectionRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(picked) == 0 {
		metrics.SelectionRuns.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("selector returned no markets: %w", ErrNoMarkets)
	}

	results := make([]Result, 0, len(picked))
	for _, sel := range picked {
		full, ok := FindByCondition(active, sel.ConditionID)
		if !ok {
			logger.Warnf("selected market %s not in feed, skipping", sel.ConditionID)
			continue
		}
		enriched, err := p.enricher.Enrich(ctx, sel, full)
		if err != nil {
			metrics.SelectionRuns.WithLabelValues("error").Inc()
			return nil, err
		}
		results = append(results, Result{
			Market:     ToMarketData(enriched, full),
			Data:       ToAgentData(enriched, full),
			Enriched:   enriched,
			Selected:   sel,
			Polymarket: full,
		})
	}
	if len(results) == 0 {
		metrics.SelectionRuns.WithLabelValues("empty").Inc()
		return nil, ErrNoMarkets
	}
	metrics.SelectionRuns.WithLabelValues("ok").Inc()
	return results, nil
}

// Best returns the first prepared market.
func (p *Pipeline) Best(ctx context.Context) (Result, error) {
	results, err := p.Run(ctx)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}
