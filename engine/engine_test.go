package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentroute/agent"
	"github.com/hupe1980/agentroute/core"
	"github.com/hupe1980/agentroute/gateway"
	"github.com/hupe1980/agentroute/logging"
	"github.com/hupe1980/agentroute/model"
	"github.com/hupe1980/agentroute/session"
)

// authGateway rejects every Execute call with an authorization error.
type authGateway struct {
	url string
}

func (g *authGateway) ListTools(context.Context) ([]gateway.ToolInfo, error) { return nil, nil }

func (g *authGateway) Execute(context.Context, string, map[string]any) (string, error) {
	return "", &gateway.AuthorizationError{Reason: "consent required", URL: g.url}
}

func (g *authGateway) Authorize(context.Context, string) (string, error) { return g.url, nil }

func (g *authGateway) Close() error { return nil }

func textResponse(text string) model.Response {
	return model.Response{
		Content: core.Content{
			Role:  "assistant",
			Parts: []core.Part{core.TextPart{Text: text}},
		},
		FinishReason: "stop",
	}
}

func toolCallResponse(name string) model.Response {
	return model.Response{
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        "call-1",
				Name:      name,
				Arguments: "{}",
			}}},
		},
		FinishReason: "tool_calls",
	}
}

// scriptedAgent builds an agent whose model replays the given responses in
// order. The model is returned alongside for request inspection.
func scriptedAgent(name string, responses ...model.Response) (*agent.Agent, *model.MockModel) {
	llm := model.NewMockModel(name, "mock")
	for _, r := range responses {
		llm.Enqueue(r)
	}
	return agent.New(name, llm), llm
}

func newEngine(supervisor string, agents ...*agent.Agent) *Engine {
	e := New(func(o *Options) {
		o.Supervisor = supervisor
	})
	for _, a := range agents {
		e.Register(a)
	}
	return e
}

func TestEngine_Register(t *testing.T) {
	a1, _ := scriptedAgent("first")
	a2, _ := scriptedAgent("second")
	a1again, _ := scriptedAgent("first")

	e := newEngine("", a1, a2, a1again)
	assert.Equal(t, []string{"first", "second"}, e.AgentIDs())
}

func TestEngine_FallbackSingleAgent(t *testing.T) {
	worker, workerLLM := scriptedAgent("worker", textResponse("worker reply"))
	other, otherLLM := scriptedAgent("other", textResponse("never"))

	e := newEngine("", worker, other)
	sess := session.New()

	responses := e.ProcessRequest(context.Background(), sess, "do it")
	assert.Equal(t, []string{"worker reply"}, responses)
	assert.Len(t, workerLLM.Requests(), 1)
	assert.Empty(t, otherLLM.Requests(), "fallback runs only the first registered agent")

	// The fallback output is not recorded in the conversation.
	entries := sess.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsUser())
}

func TestEngine_FallbackUnknownSupervisor(t *testing.T) {
	worker, _ := scriptedAgent("worker", textResponse("worker reply"))

	e := newEngine("missing_id", worker)
	responses := e.ProcessRequest(context.Background(), session.New(), "do it")
	assert.Equal(t, []string{"worker reply"}, responses)
}

func TestEngine_FallbackNoAgents(t *testing.T) {
	e := newEngine("")
	assert.Empty(t, e.ProcessRequest(context.Background(), session.New(), "do it"))
}

func TestEngine_RouteThenComplete(t *testing.T) {
	sup, supLLM := scriptedAgent("supervisor", textResponse("worker"), textResponse(RouteComplete))
	worker, workerLLM := scriptedAgent("worker", textResponse("worker reply"))

	e := newEngine("supervisor", sup, worker)
	sess := session.New()

	responses := e.ProcessRequest(context.Background(), sess, "do it")
	assert.Equal(t, []string{"worker reply"}, responses)

	// The worker turn lands in the conversation and the supervisor sees it on
	// its second decision.
	entries := sess.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "worker", entries[1].AgentID)
	assert.Equal(t, "worker reply", entries[1].Text)

	supReqs := supLLM.Requests()
	require.Len(t, supReqs, 2)
	assert.Contains(t, supReqs[1].Contents[0].Text(), "[Previous Agent Output]")
	assert.Contains(t, supReqs[1].Contents[0].Text(), "worker: worker reply")

	// The worker receives the context preamble, the supervisor does not.
	workerReqs := workerLLM.Requests()
	require.Len(t, workerReqs, 1)
	assert.True(t, strings.HasPrefix(workerReqs[0].Contents[0].Text(), "IMPORTANT:"))
	assert.False(t, strings.HasPrefix(supReqs[0].Contents[0].Text(), "IMPORTANT:"))
}

func TestEngine_CompleteImmediately(t *testing.T) {
	sup, _ := scriptedAgent("supervisor", textResponse(RouteComplete))
	worker, workerLLM := scriptedAgent("worker", textResponse("never"))

	e := newEngine("supervisor", sup, worker)
	responses := e.ProcessRequest(context.Background(), session.New(), "do it")
	assert.Empty(t, responses)
	assert.Empty(t, workerLLM.Requests())
}

func TestEngine_CompleteTokenTrimmed(t *testing.T) {
	sup, _ := scriptedAgent("supervisor", textResponse("  COMPLETE \n"))
	worker, workerLLM := scriptedAgent("worker", textResponse("never"))

	e := newEngine("supervisor", sup, worker)
	assert.Empty(t, e.ProcessRequest(context.Background(), session.New(), "do it"))
	assert.Empty(t, workerLLM.Requests())
}

func TestEngine_UnknownRouteEndsSession(t *testing.T) {
	sup, _ := scriptedAgent("supervisor", textResponse("worker"), textResponse("nonsense"))
	worker, _ := scriptedAgent("worker", textResponse("worker reply"))

	e := newEngine("supervisor", sup, worker)
	responses := e.ProcessRequest(context.Background(), session.New(), "do it")
	assert.Equal(t, []string{"worker reply"}, responses, "responses so far survive an unknown route")
}

func TestEngine_SupervisorFailureEndsSession(t *testing.T) {
	supLLM := model.NewMockModel("supervisor", "mock")
	supLLM.FailWith(errors.New("rate limited"))
	sup := agent.New("supervisor", supLLM)
	worker, workerLLM := scriptedAgent("worker", textResponse("never"))

	e := newEngine("supervisor", sup, worker)
	responses := e.ProcessRequest(context.Background(), session.New(), "do it")
	assert.Empty(t, responses, "supervisor failure halts fail-safe, no error surfaces")
	assert.Empty(t, workerLLM.Requests())
}

func TestEngine_IterationCap(t *testing.T) {
	supLLM := model.NewMockModel("supervisor", "mock")
	workerLLM := model.NewMockModel("worker", "mock")
	for i := 0; i < 20; i++ {
		supLLM.Enqueue(textResponse("worker"))
		workerLLM.Enqueue(textResponse("worker reply"))
	}
	sup := agent.New("supervisor", supLLM)
	worker := agent.New("worker", workerLLM)

	e := New(func(o *Options) {
		o.Supervisor = "supervisor"
		o.MaxIterations = 3
	})
	e.Register(sup)
	e.Register(worker)

	responses := e.ProcessRequest(context.Background(), session.New(), "do it")
	assert.Len(t, responses, 3, "cap truncates silently")
}

func TestEngine_PendingAuthShortCircuits(t *testing.T) {
	sup, supLLM := scriptedAgent("supervisor", textResponse("worker"))
	worker, workerLLM := scriptedAgent("worker", textResponse("never"))

	e := newEngine("supervisor", sup, worker)
	sess := session.New()
	sess.SetPendingAuth("https://auth.example.com/pending")

	responses := e.ProcessRequest(context.Background(), sess, "do it")
	require.Len(t, responses, 1)
	assert.Equal(t, gateway.AuthRequiredMarker+" https://auth.example.com/pending", responses[0])

	// Neither the supervisor nor any agent ran.
	assert.Empty(t, supLLM.Requests())
	assert.Empty(t, workerLLM.Requests())

	// The user turn is still recorded for the later replay.
	entries := sess.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsUser())
}

func TestEngine_AuthDuringExecutionOverwritesResponse(t *testing.T) {
	sup, _ := scriptedAgent("supervisor", textResponse("worker"))

	workerLLM := model.NewMockModel("worker", "mock")
	workerLLM.Enqueue(toolCallResponse("ListTickets"))
	workerLLM.Enqueue(textResponse("partial answer without data"))
	binding := gateway.NewBinding(gateway.ToolInfo{QualifiedName: "Jira.ListTickets"},
		&authGateway{url: "https://auth.example.com/live"}, logging.NoOpLogger{})
	worker := agent.New("worker", workerLLM, func(o *agent.Options) {
		o.Bindings = []*gateway.Binding{binding}
	})

	e := newEngine("supervisor", sup, worker)
	sess := session.New()

	responses := e.ProcessRequest(context.Background(), sess, "tickets?")
	require.Len(t, responses, 1)
	assert.Equal(t, gateway.AuthRequiredMarker+" https://auth.example.com/live", responses[0],
		"the agent's partial text is replaced with the authorization message")

	// The dropped turn never reaches the conversation.
	entries := sess.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsUser())

	url, pending := sess.PendingAuth()
	require.True(t, pending)
	assert.Equal(t, "https://auth.example.com/live", url)
}

func TestEngine_AgentErrorRecoveredAsResponse(t *testing.T) {
	sup, _ := scriptedAgent("supervisor", textResponse("worker"), textResponse(RouteComplete))

	workerLLM := model.NewMockModel("worker", "mock")
	workerLLM.FailWith(errors.New("connection refused"))
	worker := agent.New("worker", workerLLM)

	e := newEngine("supervisor", sup, worker)
	sess := session.New()

	responses := e.ProcessRequest(context.Background(), sess, "do it")
	require.Len(t, responses, 1)
	assert.True(t, strings.HasPrefix(responses[0], "Error: "))
	assert.Contains(t, responses[0], "connection refused")

	// Unlike authorization, the error text stays in the conversation so the
	// supervisor can route around it.
	entries := sess.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "worker", entries[1].AgentID)
	assert.Contains(t, entries[1].Text, "Error: ")
}

func TestEngine_EmptyResponseSkipped(t *testing.T) {
	sup, _ := scriptedAgent("supervisor", textResponse("worker"), textResponse(RouteComplete))
	worker, _ := scriptedAgent("worker", textResponse("   "))

	e := newEngine("supervisor", sup, worker)
	sess := session.New()

	responses := e.ProcessRequest(context.Background(), sess, "do it")
	assert.Empty(t, responses)
	assert.Equal(t, 1, sess.Len(), "empty turns are not recorded")
}

func TestOutcomeConstructors(t *testing.T) {
	assert.Equal(t, Outcome{Kind: OutcomeRoute, AgentID: "worker"}, RouteTo("worker"))
	assert.Equal(t, Outcome{Kind: OutcomeComplete}, Complete())
	assert.Equal(t, Outcome{Kind: OutcomeFailed, Reason: "boom"}, Failed("boom"))
}
