// Package mcp implements gateway.Gateway over Model Context Protocol servers.
// Each configured server becomes one toolkit: the qualified name of a
// discovered tool is "<server>.<tool>". Stdio and streamable-HTTP transports
// are supported; HTTP servers may additionally be protected by OAuth, in
// which case a rejected call surfaces the consent URL as an
// authorization-required condition.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/agentroute/config"
	"github.com/hupe1980/agentroute/gateway"
	"github.com/hupe1980/agentroute/logging"
)

// callTimeout is the default per-call timeout for MCP tool execution.
const callTimeout = 30 * time.Second

// clientName identifies this process to MCP servers.
const clientName = "agentroute"

var urlPattern = regexp.MustCompile(`https?://[^\s)>"']+`)

// Options configure the MCP gateway.
type Options struct {
	// OAuth enables the OAuth flow for streamable-HTTP servers. When nil,
	// HTTP servers are contacted without authentication.
	OAuth *transport.OAuthConfig
	// CallTimeout bounds a single tool execution.
	CallTimeout time.Duration
	// Logger receives connection and call diagnostics.
	Logger logging.Logger
}

// mcpClient abstracts the MCP client surface used here, for testability.
type mcpClient interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

type serverConn struct {
	name   string
	client mcpClient
}

// Gateway connects to the configured MCP servers and exposes their tools.
type Gateway struct {
	servers []serverConn
	opts    Options
	logger  logging.Logger
}

// New connects to all configured servers. Connections established before a
// failure are closed again.
func New(ctx context.Context, servers []config.MCPServer, optFns ...func(o *Options)) (*Gateway, error) {
	opts := Options{CallTimeout: callTimeout, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	g := &Gateway{opts: opts, logger: opts.Logger}
	for _, srv := range servers {
		conn, err := g.connect(ctx, srv)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("mcp server %q: %w", srv.Name, err)
		}
		g.servers = append(g.servers, *conn)
	}
	return g, nil
}

// newWithClients builds a gateway from pre-built clients (for testing).
func newWithClients(servers []serverConn, logger logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Gateway{servers: servers, opts: Options{CallTimeout: callTimeout}, logger: logger}
}

func (g *Gateway) connect(ctx context.Context, srv config.MCPServer) (*serverConn, error) {
	var c mcpClient
	var err error

	switch srv.Transport {
	case "stdio":
		c, err = mcpclient.NewStdioMCPClient(srv.Command, envSlice(srv.Env), srv.Args...)
		if err != nil {
			return nil, fmt.Errorf("create stdio client: %w", err)
		}
	case "http":
		var tOpts []transport.StreamableHTTPCOption
		if g.opts.OAuth != nil {
			tOpts = append(tOpts, transport.WithHTTPOAuth(*g.opts.OAuth))
		}
		t, tErr := transport.NewStreamableHTTP(srv.URL, tOpts...)
		if tErr != nil {
			return nil, fmt.Errorf("create http transport: %w", tErr)
		}
		httpClient := mcpclient.NewClient(t)
		if err = httpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("start http client: %w", err)
		}
		c = httpClient
	default:
		return nil, fmt.Errorf("unsupported transport %q", srv.Transport)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: "1.0.0"}

	if ic, ok := c.(interface {
		Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	}); ok {
		if _, err = ic.Initialize(ctx, initReq); err != nil {
			c.Close()
			return nil, fmt.Errorf("initialize: %w", err)
		}
	}

	g.logger.Info("mcp server connected", "name", srv.Name, "transport", srv.Transport)

	return &serverConn{name: srv.Name, client: c}, nil
}

// ListTools returns every tool of every connected server under its qualified
// name. A single unreachable server is skipped; discovery fails only when all
// servers fail.
func (g *Gateway) ListTools(ctx context.Context) ([]gateway.ToolInfo, error) {
	var infos []gateway.ToolInfo
	var errs []string
	successCount := 0

	for _, srv := range g.servers {
		result, err := srv.client.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			g.logger.Warn("mcp server discovery failed, skipping", "server", srv.name, "error", err.Error())
			errs = append(errs, fmt.Sprintf("%s: %v", srv.name, err))
			continue
		}
		for _, t := range result.Tools {
			infos = append(infos, gateway.ToolInfo{
				QualifiedName: srv.name + "." + t.Name,
				Description:   t.Description,
				Parameters:    schemaToMap(t.InputSchema),
			})
		}
		g.logger.Info("mcp tools discovered", "server", srv.name, "count", len(result.Tools))
		successCount++
	}

	if successCount == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all mcp servers failed discovery: %s", strings.Join(errs, "; "))
	}
	return infos, nil
}

// Execute runs a tool by qualified name. Permission-denied outcomes (OAuth
// rejections and tool errors that state an authorization requirement) are
// reported as *gateway.AuthorizationError; other tool errors are returned
// with the raw error text.
func (g *Gateway) Execute(ctx context.Context, qualifiedName string, args map[string]any) (string, error) {
	srv, toolName, err := g.resolve(qualifiedName)
	if err != nil {
		return "", err
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = toolName
	callReq.Params.Arguments = args

	g.logger.Debug("mcp tool call", "server", srv.name, "tool", toolName)

	callCtx, cancel := context.WithTimeout(ctx, g.opts.CallTimeout)
	defer cancel()

	result, err := srv.client.CallTool(callCtx, callReq)
	if err != nil {
		if mcpclient.IsOAuthAuthorizationRequiredError(err) {
			return "", &gateway.AuthorizationError{
				Reason: err.Error(),
				URL:    g.authorizationURL(ctx, err),
			}
		}
		return "", err
	}

	text := extractContent(result)
	if result.IsError {
		if isAuthRequiredText(text) {
			return "", &gateway.AuthorizationError{Reason: text, URL: extractURL(text)}
		}
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}

// Authorize re-issues the call with no arguments and harvests the consent
// URL from the resulting permission-denied condition. Servers without an
// authorization flow yield an error.
func (g *Gateway) Authorize(ctx context.Context, qualifiedName string) (string, error) {
	_, err := g.Execute(ctx, qualifiedName, map[string]any{})
	if err == nil {
		return "", fmt.Errorf("tool %q did not require authorization", qualifiedName)
	}
	if authErr, ok := err.(*gateway.AuthorizationError); ok && authErr.URL != "" {
		return authErr.URL, nil
	}
	return "", fmt.Errorf("no authorization flow for tool %q", qualifiedName)
}

// Close shuts down all MCP server connections.
func (g *Gateway) Close() error {
	var firstErr error
	for _, srv := range g.servers {
		if err := srv.client.Close(); err != nil {
			g.logger.Warn("mcp server close error", "server", srv.name, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// authorizationURL walks the OAuth handshake far enough to produce the
// consent URL the end user must visit. Errors leave the URL empty; the
// binding then falls back to the raw denial reason.
func (g *Gateway) authorizationURL(ctx context.Context, err error) string {
	handler := mcpclient.GetOAuthHandler(err)
	if handler == nil {
		return ""
	}
	state, sErr := transport.GenerateState()
	if sErr != nil {
		g.logger.Warn("oauth state generation failed", "error", sErr.Error())
		return ""
	}
	verifier, vErr := transport.GenerateCodeVerifier()
	if vErr != nil {
		g.logger.Warn("oauth verifier generation failed", "error", vErr.Error())
		return ""
	}
	challenge := transport.GenerateCodeChallenge(verifier)
	url, uErr := handler.GetAuthorizationURL(ctx, state, challenge)
	if uErr != nil {
		g.logger.Warn("oauth authorization url failed", "error", uErr.Error())
		return ""
	}
	return url
}

// resolve splits a qualified name into server connection and tool name.
func (g *Gateway) resolve(qualifiedName string) (*serverConn, string, error) {
	base := qualifiedName
	if i := strings.Index(base, "@"); i >= 0 {
		base = base[:i]
	}
	i := strings.Index(base, ".")
	if i < 0 {
		return nil, "", fmt.Errorf("malformed tool name %q", qualifiedName)
	}
	serverName, toolName := base[:i], base[i+1:]
	for idx := range g.servers {
		if g.servers[idx].name == serverName {
			return &g.servers[idx], toolName, nil
		}
	}
	return nil, "", fmt.Errorf("unknown toolkit %q", serverName)
}

// extractContent converts MCP CallToolResult content to a string.
func extractContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			// For non-text content, marshal to JSON.
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// schemaToMap converts an MCP input schema into the generic JSON schema map
// bindings validate against.
func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil || len(out) == 0 {
		return map[string]any{"type": "object"}
	}
	return out
}

// isAuthRequiredText reports whether a tool error text states an
// authorization requirement.
func isAuthRequiredText(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "authorization required") || strings.Contains(lower, "permission denied")
}

// extractURL pulls the first URL out of a denial text, if any.
func extractURL(text string) string {
	return urlPattern.FindString(text)
}

// envSlice converts a map of env vars to KEY=VALUE slices.
func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	return result
}
