package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evergreen/internal/config"
	"evergreen/internal/decision"
	"evergreen/internal/gateway/provider"
	"evergreen/internal/persona"
	"evergreen/internal/service"
	"evergreen/internal/store"
)

type stubModel struct {
	id    string
	reply func(provider.ChatPayload) (string, error)

	mu       sync.Mutex
	purposes []string
}

func (m *stubModel) ID() string        { return m.id }
func (m *stubModel) Enabled() bool     { return true }
func (m *stubModel) ExpectsJSON() bool { return true }

func (m *stubModel) Call(_ context.Context, payload provider.ChatPayload) (string, error) {
	m.mu.Lock()
	m.purposes = append(m.purposes, payload.Purpose)
	m.mu.Unlock()
	return m.reply(payload)
}

func yesReply(provider.ChatPayload) (string, error) {
	return `{"direction":"YES","confidence":80,"size":400,"reasoning":"Edge is positive."}`, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", LogLevel: "error", HTTPAddr: "127.0.0.1:0"},
		AI: config.AIConfig{
			AgentModel:     "fast",
			DebateModel:    "deep",
			SelectionModel: "fast",
			PersonaModels:  map[string]string{"quantagent": "deep"},
			TimeoutSeconds: 5,
		},
		Store:     config.StoreConfig{Driver: "none", TimeoutSeconds: 1},
		Selection: config.SelectionConfig{BaseURL: "http://127.0.0.1:1", TopN: 1, CandidateLimit: 10, TimeoutSeconds: 1},
	}
}

func TestBindModels_PersonaOverrideAndFallback(t *testing.T) {
	fast := &stubModel{id: "fast", reply: yesReply}
	deep := &stubModel{id: "deep", reply: yesReply}
	reg := provider.NewRegistry(fast, deep)

	ai := testConfig().AI
	ai.DebateModel = ""
	b, err := bindModels(reg, ai, persona.Default())
	require.NoError(t, err)

	assert.Equal(t, "fast", b.agent.ID())
	assert.Equal(t, "fast", b.debate.ID(), "empty debate model falls back to the agent model")
	assert.Equal(t, "fast", b.selection.ID())
	require.Contains(t, b.perPersona, persona.Quant)
	assert.Equal(t, "deep", b.perPersona[persona.Quant].ID())
	assert.NotContains(t, b.perPersona, persona.Risk)
}

func TestBindModels_UnknownModel(t *testing.T) {
	reg := provider.NewRegistry(&stubModel{id: "fast", reply: yesReply})
	_, err := bindModels(reg, testConfig().AI, persona.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrUnknownModel))
	assert.Contains(t, err.Error(), "ai.persona_models.quantagent")
}

func TestStoreOpener(t *testing.T) {
	assert.Nil(t, storeOpener(config.StoreConfig{Driver: "none"}))
	assert.NotNil(t, storeOpener(config.StoreConfig{Driver: "postgres", PostgresDSN: "postgres://x"}))

	open := storeOpener(config.StoreConfig{Driver: "sqlite", SqlitePath: filepath.Join(t.TempDir(), "d.db")})
	require.NotNil(t, open)
	s, err := open(context.Background())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBuild_DecidesWithoutServer(t *testing.T) {
	fast := &stubModel{id: "fast", reply: yesReply}
	deep := &stubModel{id: "deep", reply: func(p provider.ChatPayload) (string, error) {
		if p.Purpose == "debate" {
			return "", errors.New("debate model down")
		}
		return yesReply(p)
	}}

	a, err := NewApp(context.Background(), testConfig(),
		WithModels(provider.NewRegistry(fast, deep)),
		WithoutServer(),
	)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.api)
	assert.Nil(t, a.hub)
	require.NotNil(t, a.Summary)
	assert.Equal(t, "none", a.Summary.Store)
	assert.Len(t, a.Summary.Personas, persona.Count)

	body := `{"market":{"symbol":"BTC-TEST","price":0.5},"data":{"portfolio":{"totalValue":10000,"heat":10}}}`
	resp, err := a.Service().Handle(context.Background(), []byte(body))
	require.NoError(t, err)
	assert.Equal(t, service.StatusOK, resp.Status)
	assert.Equal(t, decision.DirectionYes, resp.InvestmentDecision.Direction)
	assert.InDelta(t, 400.0, resp.InvestmentDecision.Size, 1e-9)

	assert.Contains(t, deep.purposes, "QuantAgent")
	assert.Contains(t, deep.purposes, "debate")
	assert.NotContains(t, fast.purposes, "QuantAgent")
}

func TestBuild_WithServer(t *testing.T) {
	fast := &stubModel{id: "fast", reply: yesReply}
	deep := &stubModel{id: "deep", reply: yesReply}
	cfg := testConfig()

	a, err := NewApp(context.Background(), cfg, WithModels(provider.NewRegistry(fast, deep)))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.api)
	require.NotNil(t, a.hub)
	assert.Equal(t, cfg.App.HTTPAddr, a.Summary.HTTPAddr)
	assert.Equal(t, []string{"websocket"}, a.Summary.Sinks)

	var sb strings.Builder
	a.Summary.Fprint(&sb)
	assert.Contains(t, sb.String(), "QuantAgent")
	assert.Contains(t, sb.String(), "weight=0.30 model=deep")
}

func TestBuild_InstructionsLoadFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Agents.InstructionsPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewAppBuilder(cfg, WithModels(provider.NewRegistry())).Build(context.Background())
	require.Error(t, err)
}
