package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentroute/core"
)

func userRequest(text string) Request {
	return Request{Contents: []core.Content{{
		Role:  "user",
		Parts: []core.Part{core.TextPart{Text: text}},
	}}}
}

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("test", "mock")
	m.AddResponse("ping", "pong")

	resp, err := m.Generate(context.Background(), userRequest("ping"))
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content.Text())

	// Unknown prompts get a deterministic default.
	resp, err = m.Generate(context.Background(), userRequest("other"))
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Content.Text())
}

func TestMockModel_ScriptedPrecedence(t *testing.T) {
	m := NewMockModel("test", "mock")
	m.AddResponse("ping", "pong")
	m.Enqueue(Response{Content: core.Content{
		Role:  "assistant",
		Parts: []core.Part{core.TextPart{Text: "scripted"}},
	}})

	resp, err := m.Generate(context.Background(), userRequest("ping"))
	require.NoError(t, err)
	assert.Equal(t, "scripted", resp.Content.Text())

	// Queue drained, canned match takes over.
	resp, err = m.Generate(context.Background(), userRequest("ping"))
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content.Text())

	assert.Len(t, m.Requests(), 2)
}

func TestMockModel_FailWith(t *testing.T) {
	m := NewMockModel("test", "mock")
	m.FailWith(errors.New("boom"))

	_, err := m.Generate(context.Background(), userRequest("ping"))
	assert.Error(t, err)
}

func TestMockModel_Info(t *testing.T) {
	info := NewMockModel("test", "mock").Info()
	assert.Equal(t, "test", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.True(t, info.SupportsTools)
}
