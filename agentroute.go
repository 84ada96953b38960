// Package agentroute provides a high-level façade over the routing engine and
// service abstractions (configuration, sessions, models, the tool gateway)
// enabling a YAML-declared multi-agent system to be embedded in a few lines.
// Most applications interact with this package by:
//  1. Creating a System via New() from a configuration path
//  2. Calling ProcessRequest for each user input
//  3. Inspecting the session (pending authorization, transcript) between requests
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. Defaults are safe for local use; embedders
// typically supply a structured logger.
package agentroute

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/agentroute/agent"
	"github.com/hupe1980/agentroute/config"
	"github.com/hupe1980/agentroute/engine"
	"github.com/hupe1980/agentroute/gateway"
	"github.com/hupe1980/agentroute/gateway/mcp"
	"github.com/hupe1980/agentroute/logging"
	"github.com/hupe1980/agentroute/model"
	"github.com/hupe1980/agentroute/model/anthropic"
	"github.com/hupe1980/agentroute/model/openai"
	"github.com/hupe1980/agentroute/session"
)

// ModelFactory builds a model for a configured model name and temperature.
type ModelFactory func(name string, temperature float64) model.Model

// Options configures the System.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Gateway overrides the MCP gateway built from configuration. Useful for
	// tests and embedders with their own tool backend.
	Gateway gateway.Gateway
	// ModelFactory overrides provider selection (defaults to name-prefix
	// based selection between OpenAI and Anthropic).
	ModelFactory ModelFactory
}

// System is the high-level façade aggregating the engine, the session and the
// tool gateway.
type System struct {
	cfg         *config.Config
	engine      *engine.Engine
	sess        *session.Session
	gw          gateway.Gateway
	logger      logging.Logger
	ownsGateway bool
}

// New loads the configuration and assembles agents, tool bindings and the
// routing engine. A missing configuration file is reported as
// config.ErrNotFound so callers can present it distinctly.
func New(ctx context.Context, configPath string, optFns ...func(o *Options)) (*System, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(ctx, cfg, optFns...)
}

// NewFromConfig assembles a System from an already-parsed configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*System, error) {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		ModelFactory: DefaultModelFactory,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &System{
		cfg:    cfg,
		sess:   session.New(),
		logger: opts.Logger,
		gw:     opts.Gateway,
	}

	if s.gw == nil && cfg.HasTools() && len(cfg.Gateway.Servers) > 0 {
		gw, err := mcp.New(ctx, cfg.Gateway.Servers, func(o *mcp.Options) { o.Logger = opts.Logger })
		if err != nil {
			return nil, fmt.Errorf("tool gateway: %w", err)
		}
		s.gw = gw
		s.ownsGateway = true
	}

	var universe []gateway.ToolInfo
	if s.gw != nil {
		tools, err := s.gw.ListTools(ctx)
		if err != nil {
			s.logger.Warn("could not discover tools", "error", err.Error())
		} else {
			universe = tools
		}
	}

	eng := engine.New(func(o *engine.Options) {
		o.Supervisor = cfg.Routing.Supervisor
		o.MaxIterations = cfg.Routing.MaxIterations
		o.Logger = opts.Logger
	})

	for _, id := range cfg.Agents.Order {
		ac := cfg.Agents.ByID[id]
		var bindings []*gateway.Binding
		if s.gw != nil {
			bindings = gateway.Bind(universe, ac.Tools, s.gw, opts.Logger)
		}
		a := agent.New(id, opts.ModelFactory(ac.Model, ac.TemperatureOrDefault()), func(o *agent.Options) {
			if ac.Instructions != "" {
				o.Instruction = agent.NewInstructionFromText(ac.Instructions)
			}
			o.Bindings = bindings
			o.Logger = opts.Logger
		})
		eng.Register(a)
		opts.Logger.Debug("agent registered", "agent", id, "model", ac.Model, "tools", len(bindings))
	}

	s.engine = eng
	s.logger.Info("agents initialized", "count", cfg.Agents.Len())
	return s, nil
}

// DefaultModelFactory selects the provider by model-name prefix: names
// starting with "claude" use the Anthropic Messages API, everything else the
// OpenAI Chat Completions API.
func DefaultModelFactory(name string, temperature float64) model.Model {
	if strings.HasPrefix(strings.ToLower(name), "claude") {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(name)
			o.Temperature = temperature
		})
	}
	return openai.NewModel(func(o *openai.Options) {
		o.Model = name
		o.Temperature = temperature
	})
}

// AgentCount returns the number of registered agents.
func (s *System) AgentCount() int { return s.cfg.Agents.Len() }

// Session returns the conversation state shared by all requests.
func (s *System) Session() *session.Session { return s.sess }

// ProcessRequest routes one user request through the agent system.
func (s *System) ProcessRequest(ctx context.Context, input string) []string {
	return s.engine.ProcessRequest(ctx, s.sess, input)
}

// Reset clears the conversation and any pending authorization.
func (s *System) Reset() { s.sess.Reset() }

// Close releases gateway connections the System created itself.
func (s *System) Close() error {
	if s.ownsGateway && s.gw != nil {
		return s.gw.Close()
	}
	return nil
}
