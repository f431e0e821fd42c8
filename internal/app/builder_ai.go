package app

import (
	"fmt"
	"strings"
	"time"

	"evergreen/internal/config"
	"evergreen/internal/decision"
	"evergreen/internal/gateway/provider"
	"evergreen/internal/logger"
	"evergreen/internal/persona"
)

// modelBinding is the model chosen for every stage of a run.
type modelBinding struct {
	agent      decision.Completer
	perPersona map[persona.ID]decision.Completer
	debate     decision.Completer
	selection  decision.Completer
}

func buildModelRegistry(cfg config.AIConfig) (*provider.Registry, error) {
	resolved, err := cfg.ResolveModelConfigs()
	if err != nil {
		return nil, err
	}
	modelCfgs := make([]provider.ModelCfg, 0, len(resolved))
	for _, m := range resolved {
		modelCfgs = append(modelCfgs, provider.ModelCfg{
			ID:         m.ID,
			Provider:   m.Provider,
			Enabled:    true,
			APIURL:     m.APIURL,
			APIKey:     m.APIKey,
			Model:      m.Model,
			Headers:    m.Headers,
			ExpectJSON: m.ExpectJSON,
		})
	}
	providers := provider.BuildProvidersFromConfig(modelCfgs, provider.Options{
		Temperature:      cfg.Temperature,
		Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:       cfg.MaxRetries,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.BreakerCooldownSeconds) * time.Second,
	})
	if len(providers) == 0 {
		return nil, fmt.Errorf("未启用任何 AI 模型（请检查 ai.models 配置）")
	}
	return provider.NewRegistry(providers...), nil
}

// bindModels resolves every stage's model id against the registry. Empty
// debate and selection ids fall back to the agent model.
func bindModels(reg *provider.Registry, cfg config.AIConfig, personas persona.Set) (modelBinding, error) {
	if reg == nil {
		return modelBinding{}, fmt.Errorf("nil model registry")
	}
	lookup := func(key, id string) (decision.Completer, error) {
		p, err := reg.Get(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return p, nil
	}

	var (
		out modelBinding
		err error
	)
	if out.agent, err = lookup("ai.agent_model", cfg.AgentModel); err != nil {
		return modelBinding{}, err
	}
	out.perPersona = make(map[persona.ID]decision.Completer)
	for _, p := range personas.All() {
		id := cfg.ModelFor(p.Name())
		if id == "" || id == cfg.AgentModel {
			continue
		}
		m, err := lookup("ai.persona_models."+strings.ToLower(p.Name()), id)
		if err != nil {
			return modelBinding{}, err
		}
		out.perPersona[p.ID()] = m
		logger.Infof("✓ %s 使用模型 %s", p.Name(), id)
	}

	debateID := firstNonEmpty(cfg.DebateModel, cfg.AgentModel)
	if out.debate, err = lookup("ai.debate_model", debateID); err != nil {
		return modelBinding{}, err
	}
	selectionID := firstNonEmpty(cfg.SelectionModel, cfg.AgentModel)
	if out.selection, err = lookup("ai.selection_model", selectionID); err != nil {
		return modelBinding{}, err
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
