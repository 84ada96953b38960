package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentroute/core"
	"github.com/hupe1980/agentroute/gateway"
	"github.com/hupe1980/agentroute/logging"
	"github.com/hupe1980/agentroute/model"
	"github.com/hupe1980/agentroute/session"
)

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	Instruction Instruction
	Bindings    []*gateway.Binding
	// MaxToolCycles bounds the model/tool round trips inside one execution.
	MaxToolCycles int
	Logger        logging.Logger
}

// Agent couples a language model with instructions and permitted tool
// bindings. Its tool table is built once at construction and dispatched
// generically; no per-tool callables are generated.
type Agent struct {
	name          string
	llm           model.Model
	instruction   Instruction
	bindings      map[string]*gateway.Binding
	definitions   []model.ToolDefinition
	maxToolCycles int
	logger        logging.Logger
}

// New creates an agent for the given model.
func New(name string, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instruction:   NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxToolCycles: 8,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	bindings := make(map[string]*gateway.Binding, len(opts.Bindings))
	definitions := make([]model.ToolDefinition, 0, len(opts.Bindings))
	for _, b := range opts.Bindings {
		bindings[b.Name()] = b
		definitions = append(definitions, b.Definition())
	}

	return &Agent{
		name:          name,
		llm:           llm,
		instruction:   opts.Instruction,
		bindings:      bindings,
		definitions:   definitions,
		maxToolCycles: opts.MaxToolCycles,
		logger:        opts.Logger,
	}
}

// Name returns the agent identifier.
func (a *Agent) Name() string { return a.name }

// Tools returns the names of the agent's bound tools.
func (a *Agent) Tools() []string {
	names := make([]string, 0, len(a.bindings))
	for name := range a.bindings {
		names = append(names, name)
	}
	return names
}

// Respond produces one textual response for the given context string. Tool
// calls requested by the model are executed through the agent's bindings;
// their results (including authorization sentinels) are fed back until the
// model answers with text or the cycle cap is reached. An authorization
// interruption is not an error here: it only sets the session's pending slot
// as a side effect, observable by the routing loop.
func (a *Agent) Respond(ctx context.Context, sess *session.Session, input string) (string, error) {
	instructions, err := a.instruction.Resolve()
	if err != nil {
		return "", fmt.Errorf("resolve instructions: %w", err)
	}

	contents := []core.Content{{Role: "user", Parts: []core.Part{core.TextPart{Text: input}}}}

	for cycle := 0; cycle < a.maxToolCycles; cycle++ {
		start := time.Now()
		resp, err := a.llm.Generate(ctx, model.Request{
			Instructions: instructions,
			Contents:     contents,
			Tools:        a.definitions,
		})
		a.logger.Debug("agent.generate", "agent", a.name, "cycle", cycle, "duration_ms", time.Since(start).Milliseconds())
		if err != nil {
			return "", err
		}

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			return strings.TrimSpace(resp.Content.Text()), nil
		}

		contents = append(contents, resp.Content)
		contents = append(contents, core.Content{Role: "tool", Parts: a.executeCalls(ctx, sess, calls)})
	}

	return "", fmt.Errorf("agent %s exceeded %d tool cycles", a.name, a.maxToolCycles)
}

// executeCalls dispatches every function call through the binding table and
// collects the response parts. Results are always strings; failures are
// surfaced in-band as result text so the model can react to them.
func (a *Agent) executeCalls(ctx context.Context, sess *session.Session, calls []core.FunctionCall) []core.Part {
	parts := make([]core.Part, 0, len(calls))
	for _, call := range calls {
		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}

		binding, ok := a.bindings[call.Name]
		var result string
		if !ok {
			result = fmt.Sprintf("tool %q is not available to this agent", call.Name)
			a.logger.Warn("agent.tool.unknown", "agent", a.name, "tool", call.Name)
		} else {
			result = binding.Invoke(ctx, sess, parseArguments(call.Arguments))
		}

		parts = append(parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID:       id,
			Name:     call.Name,
			Response: result,
		}})
	}
	return parts
}

// parseArguments decodes the serialized argument payload. Malformed payloads
// yield an empty argument map; schema validation in the binding reports the
// missing fields.
func parseArguments(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}
