package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContent_Text(t *testing.T) {
	c := Content{Role: "assistant", Parts: []Part{
		TextPart{Text: "hello "},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "tool"}},
		TextPart{Text: "world"},
	}}
	assert.Equal(t, "hello world", c.Text())
	assert.Equal(t, "", Content{}.Text())
}

func TestContent_FunctionCalls(t *testing.T) {
	c := Content{Role: "assistant", Parts: []Part{
		TextPart{Text: "calling"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "a"}},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "2", Name: "b"}},
	}}
	calls := c.FunctionCalls()
	assert.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Name)
	assert.Equal(t, "b", calls[1].Name)

	assert.Empty(t, Content{Parts: []Part{TextPart{Text: "x"}}}.FunctionCalls())
}
