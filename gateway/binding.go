package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentroute/config"
	"github.com/hupe1980/agentroute/internal/util"
	"github.com/hupe1980/agentroute/logging"
	"github.com/hupe1980/agentroute/model"
	"github.com/hupe1980/agentroute/session"
)

// Binding exposes one permitted gateway tool to an agent. It is a plain
// descriptor dispatched through a single generic Invoke routine.
type Binding struct {
	name        string // short tool name exposed to the model
	qualified   string // full gateway name used for execution
	description string
	parameters  map[string]any
	gateway     Gateway
	logger      logging.Logger
}

// NewBinding constructs a binding for a discovered tool.
func NewBinding(info ToolInfo, g Gateway, logger logging.Logger) *Binding {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	params := info.Parameters
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return &Binding{
		name:        shortName(info.QualifiedName),
		qualified:   info.QualifiedName,
		description: info.Description,
		parameters:  params,
		gateway:     g,
		logger:      logger,
	}
}

// Name returns the short tool name exposed to the model.
func (b *Binding) Name() string { return b.name }

// QualifiedName returns the full gateway tool name.
func (b *Binding) QualifiedName() string { return b.qualified }

// Description returns the tool description shown to models.
func (b *Binding) Description() string { return b.description }

// Parameters returns the JSON schema describing expected arguments.
func (b *Binding) Parameters() map[string]any { return b.parameters }

// Definition renders the binding as a model tool definition.
func (b *Binding) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        b.name,
			Description: b.description,
			Parameters:  b.parameters,
		},
	}
}

// Invoke executes the bound tool and always returns a result string for the
// model to consume:
//
//   - success: the tool result's primary output
//   - permission denied: one Authorize handshake; on a URL the session's
//     pending slot is set and the sentinel contains the URL, otherwise the
//     sentinel carries the raw denial reason
//   - any other failure: the raw error text, surfaced verbatim so the model
//     sees maximal diagnostic information
func (b *Binding) Invoke(ctx context.Context, sess *session.Session, args map[string]any) string {
	start := time.Now()

	if err := util.ValidateParameters(args, b.parameters); err != nil {
		b.logger.Warn("tool.invoke.validation_failed", "tool", b.qualified, "error", err.Error())
		return err.Error()
	}

	result, err := b.gateway.Execute(ctx, b.qualified, args)
	if err == nil {
		b.logger.Info("tool.invoke.success", "tool", b.qualified, "duration_ms", time.Since(start).Milliseconds())
		return result
	}

	var authErr *AuthorizationError
	if errors.As(err, &authErr) {
		return b.handleAuthRequired(ctx, sess, authErr)
	}

	b.logger.Error("tool.invoke.error", "tool", b.qualified, "error", err.Error())
	return err.Error()
}

// handleAuthRequired runs the single immediate re-authorization attempt and
// synthesizes the sentinel result.
func (b *Binding) handleAuthRequired(ctx context.Context, sess *session.Session, authErr *AuthorizationError) string {
	url := authErr.URL
	if url == "" {
		u, err := b.gateway.Authorize(ctx, b.qualified)
		if err != nil {
			b.logger.Warn("tool.invoke.authorize_failed", "tool", b.qualified, "error", err.Error())
		}
		url = u
	}
	if url != "" {
		sess.SetPendingAuth(url)
		b.logger.Warn("tool.invoke.auth_required", "tool", b.qualified, "url", url)
		return fmt.Sprintf("%s %s", AuthRequiredMarker, url)
	}
	b.logger.Warn("tool.invoke.auth_denied", "tool", b.qualified, "reason", authErr.Reason)
	return fmt.Sprintf("%s Permission denied - %s", AuthRequiredMarker, authErr.Reason)
}

// Bind filters the discovered tool universe against an agent's tool
// specifications and returns one binding per granted tool. A bare toolkit
// spec grants every tool in the toolkit; a (toolkit, names) spec grants only
// the named tools. Grants are a union across specs.
func Bind(tools []ToolInfo, specs []config.ToolSpec, g Gateway, logger logging.Logger) []*Binding {
	if len(specs) == 0 {
		return nil
	}

	toolkits := make(map[string]bool)
	named := make(map[string]bool)
	for _, spec := range specs {
		if len(spec.Tools) == 0 {
			toolkits[spec.Toolkit] = true
			continue
		}
		for _, name := range spec.Tools {
			named[spec.Toolkit+"."+name] = true
		}
	}

	var bindings []*Binding
	for _, info := range tools {
		base := baseName(info.QualifiedName)
		if toolkits[toolkitOf(base)] || named[base] {
			bindings = append(bindings, NewBinding(info, g, logger))
		}
	}
	return bindings
}

// baseName strips a trailing "@version" qualifier.
func baseName(qualified string) string {
	if i := strings.Index(qualified, "@"); i >= 0 {
		return qualified[:i]
	}
	return qualified
}

// toolkitOf returns the toolkit segment of a qualified name.
func toolkitOf(base string) string {
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// shortName returns the final segment of a qualified name, the identifier
// the model calls the tool by.
func shortName(qualified string) string {
	base := baseName(qualified)
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}
	return base
}
