package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
agents:
  supervisor:
    model: gpt-4o
    temperature: 0.0
    instructions: "Route requests. Today is {{date}}."
  jira_agent:
    temperature: 0.2
    instructions: "Handle Jira."
    tools:
      - Jira
  github_agent:
    instructions: "Handle GitHub."
    tools:
      - toolkit: Github
        tools: [CreateIssue, ListIssues]

routing:
  supervisor: supervisor
  max_iterations: 5

gateway:
  servers:
    - name: Jira
      transport: stdio
      command: jira-mcp
      args: ["--stdio"]
      env:
        JIRA_TOKEN: secret
    - name: Github
      transport: http
      url: https://example.com/mcp
`

func TestParse(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	cfg, err := Parse([]byte(sampleDoc), now)
	require.NoError(t, err)

	// Declaration order is preserved.
	assert.Equal(t, []string{"supervisor", "jira_agent", "github_agent"}, cfg.Agents.Order)
	assert.Equal(t, 3, cfg.Agents.Len())

	sup, ok := cfg.Agents.Get("supervisor")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", sup.Model)
	assert.Equal(t, 0.0, sup.TemperatureOrDefault())
	assert.Equal(t, "Route requests. Today is 2025-03-14.", sup.Instructions)

	jira, ok := cfg.Agents.Get("jira_agent")
	require.True(t, ok)
	assert.Equal(t, DefaultModel, jira.Model)
	assert.Equal(t, 0.2, jira.TemperatureOrDefault())
	require.Len(t, jira.Tools, 1)
	assert.Equal(t, "Jira", jira.Tools[0].Toolkit)
	assert.Empty(t, jira.Tools[0].Tools)

	gh, ok := cfg.Agents.Get("github_agent")
	require.True(t, ok)
	assert.Equal(t, DefaultTemperature, gh.TemperatureOrDefault())
	require.Len(t, gh.Tools, 1)
	assert.Equal(t, "Github", gh.Tools[0].Toolkit)
	assert.Equal(t, []string{"CreateIssue", "ListIssues"}, gh.Tools[0].Tools)

	assert.Equal(t, "supervisor", cfg.Routing.Supervisor)
	assert.Equal(t, 5, cfg.Routing.MaxIterations)

	require.Len(t, cfg.Gateway.Servers, 2)
	assert.Equal(t, "stdio", cfg.Gateway.Servers[0].Transport)
	assert.Equal(t, "jira-mcp", cfg.Gateway.Servers[0].Command)
	assert.Equal(t, "https://example.com/mcp", cfg.Gateway.Servers[1].URL)

	assert.True(t, cfg.HasTools())
}

func TestParse_Defaults(t *testing.T) {
	doc := `
agents:
  solo:
    instructions: "Do everything."
`
	cfg, err := Parse([]byte(doc), time.Now())
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxIterations, cfg.Routing.MaxIterations)
	assert.Empty(t, cfg.Routing.Supervisor)
	assert.False(t, cfg.HasTools())

	solo, ok := cfg.Agents.Get("solo")
	require.True(t, ok)
	assert.Equal(t, DefaultModel, solo.Model)
	assert.Equal(t, DefaultTemperature, solo.TemperatureOrDefault())
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("agents: [not, a, mapping]"), time.Now())
	assert.Error(t, err)
}

func TestParse_ToolSpecMappingRequiresToolkit(t *testing.T) {
	doc := `
agents:
  a:
    tools:
      - tools: [Orphan]
`
	_, err := Parse([]byte(doc), time.Now())
	assert.Error(t, err)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Agents.Len())
}

func TestResolveInstructions(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Today is 2025-01-02.", ResolveInstructions("Today is {{date}}.", now))
	assert.Equal(t, "2025-01-02 and 2025-01-02", ResolveInstructions("{{date}} and {{date}}", now))
	assert.Equal(t, "no placeholder", ResolveInstructions("no placeholder", now))
}
