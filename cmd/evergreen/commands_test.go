package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evergreen/internal/config"
	"evergreen/internal/persona"
)

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("app:\n  env: test\n"), 0o644))

	got, err := resolveConfigPath(file, "")
	require.NoError(t, err)
	assert.Equal(t, file, got)

	got, err = resolveConfigPath("", file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = resolveConfigPath(filepath.Join(dir, "missing.yaml"), "")
	assert.Error(t, err, "an explicit path must exist")
}

func TestPrintAgents(t *testing.T) {
	ai := config.AIConfig{AgentModel: "fast", PersonaModels: map[string]string{"quantagent": "deep"}}
	var buf bytes.Buffer
	require.NoError(t, printAgents(&buf, persona.Default(), ai))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1+persona.Count)
	assert.Contains(t, lines[0], "WEIGHT")
	assert.Contains(t, lines[1], "FundamentalAgent")
	assert.Contains(t, lines[1], "0.25")
	assert.Contains(t, lines[2], "QuantAgent")
	assert.Contains(t, lines[2], "0.30")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[2]), "deep"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[4]), "fast"))
}

func TestAgentsCommand_WithConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("app:\n  log_level: error\nstore:\n  driver: none\n"), 0o644))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"agents", "--config", file})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "StrategistAgent")
	assert.Contains(t, out.String(), "Market Strategist")
}

func TestDecideCommand_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("app:\n  log_level: error\nstore:\n  driver: none\n"), 0o644))

	root := newRootCmd()
	root.SetIn(strings.NewReader(`{}`))
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"decide", "--config", file})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}
