package provider

import (
	"fmt"
	"strings"
	"time"

	"evergreen/internal/logger"
	"evergreen/internal/pkg/circuit"
)

type ModelCfg struct {
	ID, Provider, APIURL, APIKey, Model string
	Enabled                             bool
	Headers                             map[string]string
	ExpectJSON                          bool
}

// Options are shared by every client built from config.
type Options struct {
	Temperature      float64
	Timeout          time.Duration
	MaxRetries       int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func BuildProvidersFromConfig(models []ModelCfg, opts Options) []ModelProvider {
	out := make([]ModelProvider, 0, len(models))
	for _, m := range models {
		if !m.Enabled {
			continue
		}
		id := strings.TrimSpace(m.ID)
		if id == "" {
			base := strings.TrimSpace(m.Provider)
			if base == "" {
				base = "provider"
			}
			id = base
			if model := strings.TrimSpace(m.Model); model != "" {
				id = fmt.Sprintf("%s:%s", base, model)
			}
			logger.Warnf("未配置 ai.models.id，已为 %q 生成 ID: %s", m.Provider, id)
		}
		client := &OpenAIChatClient{
			BaseURL:      m.APIURL,
			APIKey:       m.APIKey,
			Model:        m.Model,
			Temperature:  opts.Temperature,
			Timeout:      opts.Timeout,
			MaxRetries:   opts.MaxRetries,
			ExtraHeaders: m.Headers,
		}
		breaker := circuit.NewCircuitBreaker("llm:"+id, opts.BreakerThreshold, opts.BreakerCooldown)
		out = append(out, NewOpenAIModelProvider(id, true, m.ExpectJSON, client, breaker))
	}
	return out
}

// Registry looks providers up by configured id.
type Registry struct {
	byID  map[string]ModelProvider
	order []string
}

func NewRegistry(providers ...ModelProvider) *Registry {
	r := &Registry{byID: make(map[string]ModelProvider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := r.byID[p.ID()]; !dup {
			r.order = append(r.order, p.ID())
		}
		r.byID[p.ID()] = p
	}
	return r
}

func (r *Registry) Get(id string) (ModelProvider, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	if !p.Enabled() {
		return nil, fmt.Errorf("%w: %s", ErrModelDisabled, id)
	}
	return p, nil
}

func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
