package decision

import (
	"context"
	"fmt"

	"evergreen/internal/logger"
	"evergreen/internal/persona"
	"evergreen/internal/types"

	"golang.org/x/sync/errgroup"
)

// DecisionGenerator produces one persona's decision.
type DecisionGenerator interface {
	Generate(ctx context.Context, p persona.Persona, market types.MarketData, data types.AgentData) (AgentDecision, error)
}

// Runner fans the five personas out over the same snapshot.
type Runner struct {
	gen      DecisionGenerator
	personas persona.Set
}

func NewRunner(gen DecisionGenerator, personas persona.Set) *Runner {
	return &Runner{gen: gen, personas: personas}
}

// Run returns one output per persona in canonical order, or the first error.
// A failed slot cancels the others; partial results are never returned.
func (r *Runner) Run(ctx context.Context, market types.MarketData, data types.AgentData) ([]AgentOutput, error) {
	all := r.personas.All()
	if len(all) != persona.Count {
		return nil, &ContractError{Stage: "runner", Reason: fmt.Sprintf("expected %d personas, have %d", persona.Count, len(all))}
	}
	results := make([]AgentOutput, len(all))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, p := range all {
		eg.Go(func() error {
			d, err := r.gen.Generate(egCtx, p, market, data)
			if err != nil {
				logger.Warnf("agent %s failed for %s: %v", p.Name(), market.Symbol, err)
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
			logger.Debugf("agent %s -> %s conf=%s size=%s", p.Name(), d.Direction, formatNumber(d.Confidence), formatNumber(d.Size))
			results[i] = AgentOutput{Agent: p.Name(), Decision: d}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
