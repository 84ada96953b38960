// Package config loads and resolves the YAML document that declares agents,
// routing behavior and tool gateway servers. Schema validation is
// intentionally minimal; unknown keys are ignored and sensible defaults are
// applied for anything omitted.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound indicates the configuration file does not exist. Callers
// surface this distinctly from parse failures.
var ErrNotFound = errors.New("configuration file not found")

// Defaults applied when the document omits the corresponding keys.
const (
	DefaultModel         = "gpt-4o-mini"
	DefaultTemperature   = 0.7
	DefaultMaxIterations = 10
)

// datePlaceholder is replaced in instruction templates at load time.
const datePlaceholder = "{{date}}"

// ToolSpec grants an agent access to gateway tools. It is a YAML union:
// a bare scalar names a toolkit (granting every tool in it), a mapping
// with toolkit + tools grants only the named tools.
//
//	tools:
//	  - Jira
//	  - toolkit: Github
//	    tools: [CreateIssue, ListIssues]
type ToolSpec struct {
	Toolkit string
	Tools   []string // empty grants the whole toolkit
}

// UnmarshalYAML decodes both union shapes.
func (s *ToolSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Toolkit = value.Value
		s.Tools = nil
		return nil
	}
	var raw struct {
		Toolkit string   `yaml:"toolkit"`
		Tools   []string `yaml:"tools"`
	}
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid tool spec: %w", err)
	}
	if raw.Toolkit == "" {
		return fmt.Errorf("tool spec mapping requires a toolkit name")
	}
	s.Toolkit = raw.Toolkit
	s.Tools = raw.Tools
	return nil
}

// AgentConfig declares a single agent.
type AgentConfig struct {
	Model        string     `yaml:"model"`
	Temperature  *float64   `yaml:"temperature"`
	Instructions string     `yaml:"instructions"`
	Tools        []ToolSpec `yaml:"tools"`
}

// TemperatureOrDefault returns the configured temperature or the default.
func (a AgentConfig) TemperatureOrDefault() float64 {
	if a.Temperature != nil {
		return *a.Temperature
	}
	return DefaultTemperature
}

// AgentMap preserves the declaration order of the agents mapping. Order
// matters: the single-agent fallback executes the first declared agent.
type AgentMap struct {
	Order []string
	ByID  map[string]AgentConfig
}

// UnmarshalYAML decodes the agents mapping keeping key order.
func (m *AgentMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("agents must be a mapping")
	}
	m.ByID = make(map[string]AgentConfig, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]
		var ac AgentConfig
		if err := valNode.Decode(&ac); err != nil {
			return fmt.Errorf("agent %q: %w", keyNode.Value, err)
		}
		m.Order = append(m.Order, keyNode.Value)
		m.ByID[keyNode.Value] = ac
	}
	return nil
}

// Get returns the agent config for an identifier.
func (m AgentMap) Get(id string) (AgentConfig, bool) {
	ac, ok := m.ByID[id]
	return ac, ok
}

// Len returns the number of declared agents.
func (m AgentMap) Len() int { return len(m.Order) }

// RoutingConfig controls the supervisor loop.
type RoutingConfig struct {
	Supervisor    string `yaml:"supervisor"`
	MaxIterations int    `yaml:"max_iterations"`
}

// MCPServer declares one MCP server the tool gateway connects to.
type MCPServer struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "stdio" or "http"
	Command   string            `yaml:"command"`   // stdio only
	Args      []string          `yaml:"args"`      // stdio only
	Env       map[string]string `yaml:"env"`       // stdio only
	URL       string            `yaml:"url"`       // http only
}

// GatewayConfig declares the tool gateway backends.
type GatewayConfig struct {
	Servers []MCPServer `yaml:"servers"`
}

// Config is the top-level configuration document.
type Config struct {
	Agents  AgentMap      `yaml:"agents"`
	Routing RoutingConfig `yaml:"routing"`
	Gateway GatewayConfig `yaml:"gateway"`
}

// HasTools reports whether any agent declares tool access.
func (c *Config) HasTools() bool {
	for _, ac := range c.Agents.ByID {
		if len(ac.Tools) > 0 {
			return true
		}
	}
	return false
}

// Load reads and parses the configuration file, applying defaults and
// resolving instruction templates against the current date. A missing file
// is reported as ErrNotFound so callers can present it distinctly.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, time.Now())
}

// Parse decodes a configuration document, applying defaults and resolving
// instruction templates against the given time.
func Parse(data []byte, now time.Time) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Routing.MaxIterations <= 0 {
		cfg.Routing.MaxIterations = DefaultMaxIterations
	}
	for id, ac := range cfg.Agents.ByID {
		if ac.Model == "" {
			ac.Model = DefaultModel
		}
		ac.Instructions = ResolveInstructions(ac.Instructions, now)
		cfg.Agents.ByID[id] = ac
	}
	return &cfg, nil
}

// ResolveInstructions substitutes the date placeholder in an instruction
// template. Resolution happens once at construction time; agents never see
// the raw placeholder.
func ResolveInstructions(instructions string, now time.Time) string {
	return strings.ReplaceAll(instructions, datePlaceholder, now.Format("2006-01-02"))
}
