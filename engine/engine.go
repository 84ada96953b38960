package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentroute/agent"
	"github.com/hupe1980/agentroute/gateway"
	"github.com/hupe1980/agentroute/logging"
	"github.com/hupe1980/agentroute/session"
)

// RouteComplete is the literal completion sentinel the supervisor emits when
// no further agent should act.
const RouteComplete = "COMPLETE"

// contextPreamble precedes the rendered conversation for member agent
// executions. It explains the [Previous Agent Output] framing so agents use
// data already fetched instead of making duplicate calls. The supervisor
// receives the bare rendering; it only emits routing tokens.
const contextPreamble = "IMPORTANT: Check the conversation history below. Previous agents may have already " +
	"retrieved data. Look for [Previous Agent Output] sections and use that information " +
	"instead of making duplicate API calls.\n\n"

// OutcomeKind enumerates routing decision results.
type OutcomeKind int

const (
	// OutcomeRoute directs execution to a named agent.
	OutcomeRoute OutcomeKind = iota
	// OutcomeComplete is the supervisor's explicit completion signal.
	OutcomeComplete
	// OutcomeFailed records a supervisor call failure. The loop halts the
	// same way as on completion (fail-safe, not fail-loud).
	OutcomeFailed
)

// Outcome is the result of one routing decision.
type Outcome struct {
	Kind    OutcomeKind
	AgentID string // set for OutcomeRoute
	Reason  string // set for OutcomeFailed
}

// RouteTo constructs a routing outcome.
func RouteTo(agentID string) Outcome { return Outcome{Kind: OutcomeRoute, AgentID: agentID} }

// Complete constructs a completion outcome.
func Complete() Outcome { return Outcome{Kind: OutcomeComplete} }

// Failed constructs a failure outcome.
func Failed(reason string) Outcome { return Outcome{Kind: OutcomeFailed, Reason: reason} }

// Options configures an Engine.
type Options struct {
	// Supervisor names the agent whose responses are interpreted as routing
	// tokens. Empty, or naming an unregistered agent, selects the
	// single-agent fallback mode.
	Supervisor string
	// MaxIterations caps agent turns per request (default 10). Reaching the
	// cap truncates silently: collected responses are returned as is.
	MaxIterations int
	Logger        logging.Logger
}

// Engine is the orchestration loop over a set of registered agents.
// Registration order matters: fallback mode executes the first registered
// agent. One routing session runs to completion before another starts; the
// engine performs no locking of its own beyond what Session provides.
type Engine struct {
	agents        map[string]*agent.Agent
	order         []string
	supervisor    string
	maxIterations int
	logger        logging.Logger
}

// New creates an engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxIterations: 10,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		agents:        make(map[string]*agent.Agent),
		supervisor:    opts.Supervisor,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
	}
}

// Register adds an agent. Re-registering a name replaces the agent but keeps
// its original position.
func (e *Engine) Register(a *agent.Agent) {
	if _, exists := e.agents[a.Name()]; !exists {
		e.order = append(e.order, a.Name())
	}
	e.agents[a.Name()] = a
}

// AgentIDs returns the registered agent identifiers in registration order.
func (e *Engine) AgentIDs() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// ProcessRequest drives one user request to completion and returns the
// responses collected along the way.
//
// The loop halts on: the iteration cap (silent truncation), a completion or
// failed routing outcome, a routing token naming no known agent, a pending
// authorization left over from a previous request (checked before routing,
// so a stale flag always short-circuits), or an authorization raised during
// an agent turn (the turn's response is overwritten with the authorization
// message; the tool call happened mid-response, so the text is unreliable).
func (e *Engine) ProcessRequest(ctx context.Context, sess *session.Session, input string) []string {
	var responses []string
	sess.AppendUser(input)

	if _, ok := e.agents[e.supervisor]; e.supervisor == "" || !ok {
		return e.runFallback(ctx, sess)
	}

	for iteration := 0; iteration < e.maxIterations; iteration++ {
		if url, pending := sess.PendingAuth(); pending {
			responses = append(responses, authMessage(url))
			break
		}

		outcome := e.Decide(ctx, sess)
		switch outcome.Kind {
		case OutcomeComplete:
			e.logger.Info("routing complete", "iteration", iteration)
			return responses
		case OutcomeFailed:
			e.logger.Warn("routing failed, ending session", "reason", outcome.Reason, "iteration", iteration)
			return responses
		}

		route := outcome.AgentID
		if _, known := e.agents[route]; !known {
			e.logger.Warn("unknown route, ending session", "route", route, "iteration", iteration)
			return responses
		}
		e.logger.Info("routing to agent", "route", route, "iteration", iteration)

		response := e.execute(ctx, sess, route)
		if response == "" {
			continue
		}
		responses = append(responses, response)

		if url, pending := sess.PendingAuth(); pending {
			// The agent's partial output is dropped from the durable log.
			responses[len(responses)-1] = authMessage(url)
			break
		}

		sess.AppendAgent(route, response)
	}

	return responses
}

// runFallback is the single-agent mode used when no valid supervisor is
// configured: the first registered agent executes once and the session
// returns immediately. Its output is not recorded in the conversation.
func (e *Engine) runFallback(ctx context.Context, sess *session.Session) []string {
	if len(e.order) == 0 {
		return nil
	}
	e.logger.Info("no supervisor configured, executing single agent", "agent", e.order[0])
	response := e.execute(ctx, sess, e.order[0])
	if response == "" {
		return nil
	}
	return []string{response}
}

// Decide asks the supervisor for the next routing token. The full rendered
// conversation is sent as a single user-role message and the trimmed reply
// is interpreted as the token. Supervisor failures are reported as Failed;
// the loop halts on them without surfacing an error to the user.
func (e *Engine) Decide(ctx context.Context, sess *session.Session) Outcome {
	sup := e.agents[e.supervisor]
	token, err := sup.Respond(ctx, sess, sess.Render())
	if err != nil {
		return Failed(fmt.Sprintf("supervisor call failed: %v", err))
	}
	token = strings.TrimSpace(token)
	if token == RouteComplete {
		return Complete()
	}
	return RouteTo(token)
}

// execute runs one agent turn against the current conversation state.
// Execution failures are recovered, not fatal: the error text becomes the
// response and is recorded as context for subsequent routing decisions.
// Authorization interruptions are the one exception, handled by the caller
// through the session's pending slot.
func (e *Engine) execute(ctx context.Context, sess *session.Session, agentID string) string {
	a, ok := e.agents[agentID]
	if !ok {
		return ""
	}
	text, err := a.Respond(ctx, sess, contextPreamble+sess.Render())
	if err != nil {
		e.logger.Error("agent execution failed", "agent", agentID, "error", err.Error())
		return fmt.Sprintf("Error: %s", err.Error())
	}
	e.logger.Debug("agent responded", "agent", agentID, "response", truncate(text, 200))
	return text
}

// truncate shortens text for log display only; response data is never cut.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

// authMessage synthesizes the authorization-required response.
func authMessage(url string) string {
	return fmt.Sprintf("%s %s", gateway.AuthRequiredMarker, url)
}
