package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(map[string]string{"OPENROUTER_API_KEY": "sk-test"}))
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.AI.AgentModel)
	assert.Equal(t, "openrouter", cfg.AI.DebateModel)
	assert.Equal(t, "openrouter", cfg.AI.SelectionModel)
	assert.Equal(t, 0.7, cfg.AI.Temperature)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "https://clob.polymarket.com", cfg.Selection.BaseURL)
	assert.Equal(t, 50, cfg.Selection.CandidateLimit)

	models, err := cfg.AI.ResolveModelConfigs()
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "sk-test", models[0].APIKey)
	assert.Equal(t, "google/gemini-2.0-flash-lite-001", models[0].Model)
	assert.True(t, models[0].ExpectJSON)
	assert.NoError(t, cfg.AI.RequireAPIKeys())
}

func TestLoad_MissingKeyIsReportedOnDemand(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(nil))
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.AI.RequireAPIKeys(), "OPENROUTER_API_KEY")
}

func TestLoad_IncludesAndPresets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "models.yaml", `
ai:
  provider_presets:
    router:
      api_url: https://router.example/v1
      api_key: preset-key
      expect_json: true
  models:
    - id: fast
      provider: openrouter
      preset: router
      enabled: true
      model: fast-model
    - id: deep
      provider: openrouter
      preset: router
      enabled: true
      model: deep-model
      expect_json: false
`)
	main := writeFile(t, dir, "config.yaml", `
include:
  - models.yaml
ai:
  agent_model: fast
  debate_model: deep
  persona_models:
    QuantAgent: deep
selection:
  top_n: 3
store:
  driver: none
`)
	cfg, err := LoadWithEnv(main, envMap(nil))
	require.NoError(t, err)

	models, err := cfg.AI.ResolveModelConfigs()
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "https://router.example/v1", models[0].APIURL)
	assert.Equal(t, "preset-key", models[0].APIKey)
	assert.True(t, models[0].ExpectJSON)
	assert.False(t, models[1].ExpectJSON)

	assert.Equal(t, "fast", cfg.AI.SelectionModel)
	assert.Equal(t, "deep", cfg.AI.ModelFor("QuantAgent"))
	assert.Equal(t, "fast", cfg.AI.ModelFor("RiskAgent"))
	assert.Equal(t, 3, cfg.Selection.TopN)
	assert.Equal(t, "none", cfg.Store.Driver)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown agent model", body: "ai:\n  agent_model: ghost\n", want: "ai.agent_model references unconfigured model id: ghost"},
		{name: "bad store driver", body: "store:\n  driver: mongo\n", want: "store.driver only supports"},
		{name: "postgres without dsn", body: "store:\n  driver: postgres\n", want: "store.postgres_dsn"},
		{name: "telegram incomplete", body: "notify:\n  telegram:\n    enabled: true\n", want: "telegram notification enabled"},
		{name: "s3 without bucket", body: "archive:\n  s3:\n    enabled: true\n", want: "archive.s3 enabled"},
		{name: "unknown preset", body: "ai:\n  models:\n    - id: m\n      enabled: true\n      preset: nope\n      model: x\n  agent_model: m\n", want: "unknown preset"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), "config.yaml", tc.body)
			_, err := LoadWithEnv(p, envMap(nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", "store:\n  driver: postgres\ncache:\n  redis:\n    enabled: true\n")
	cfg, err := LoadWithEnv(p, envMap(map[string]string{
		"DATABASE_URL": "postgres://u:p@db:5432/evergreen",
		"REDIS_ADDR":   "redis:6379",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/evergreen", cfg.Store.PostgresDSN)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")
	_, err := LoadWithEnv(filepath.Join(dir, "a.yaml"), envMap(nil))
	assert.ErrorContains(t, err, "include cycle")
}
