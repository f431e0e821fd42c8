package decision

import (
	"context"
	"time"

	"evergreen/internal/gateway/provider"
	"evergreen/internal/persona"
	"evergreen/internal/types"
)

// Completer is the completion capability as the pipeline sees it.
// provider.ModelProvider satisfies it.
type Completer interface {
	ID() string
	Call(ctx context.Context, payload provider.ChatPayload) (string, error)
}

// GeneratorConfig binds personas to models. PerPersona entries win over Default.
type GeneratorConfig struct {
	Default    Completer
	PerPersona map[persona.ID]Completer
	Timeout    time.Duration
	MaxTokens  int
}

// Generator turns one persona plus the shared inputs into one decision.
// It never retries; the client underneath owns transport retries.
type Generator struct {
	cfg GeneratorConfig
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{cfg: cfg}
}

func (g *Generator) modelFor(id persona.ID) Completer {
	if c, ok := g.cfg.PerPersona[id]; ok && c != nil {
		return c
	}
	return g.cfg.Default
}

func (g *Generator) Generate(ctx context.Context, p persona.Persona, market types.MarketData, data types.AgentData) (AgentDecision, error) {
	model := g.modelFor(p.ID())
	if model == nil {
		return AgentDecision{}, &ContractError{Stage: "generator", Reason: "no model bound for " + p.Name()}
	}
	system, user := BuildAgentPrompt(p, market, data)

	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	raw, err := model.Call(callCtx, provider.ChatPayload{
		System:     system,
		User:       user,
		ExpectJSON: true,
		MaxTokens:  g.cfg.MaxTokens,
		Purpose:    p.Name(),
	})
	if err != nil {
		return AgentDecision{}, &CompletionError{Model: model.ID(), Purpose: p.Name(), Err: err}
	}
	return ParseDecision(p.Name(), raw)
}
