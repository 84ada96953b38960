package gateway

import (
	"context"
	"fmt"
)

// AuthRequiredMarker is the literal prefix of every authorization-required
// response. The presentation layer treats any response containing it
// specially, and the routing loop stops a session when one is produced.
const AuthRequiredMarker = "AUTHORIZATION_REQUIRED:"

// ToolInfo describes one discoverable tool.
type ToolInfo struct {
	// QualifiedName is "Toolkit.Tool", optionally suffixed with "@version".
	QualifiedName string
	Description   string
	Parameters    map[string]any // JSON schema for the tool arguments
}

// AuthorizationError is the permission-denied / authorization-required
// condition. URL carries the consent link when the gateway already knows it;
// otherwise the binding performs one Authorize handshake to obtain it.
type AuthorizationError struct {
	Reason string
	URL    string
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization required: %s", e.Reason)
}

// Gateway executes tools on behalf of agents.
//
// Execute returns the tool result's primary output as a string. A
// permission-denied outcome is reported as *AuthorizationError; any other
// failure is returned verbatim so callers can surface the raw error text.
type Gateway interface {
	// ListTools returns the universe of discoverable tools.
	ListTools(ctx context.Context) ([]ToolInfo, error)

	// Execute runs a tool by qualified name with the given arguments.
	Execute(ctx context.Context, qualifiedName string, args map[string]any) (string, error)

	// Authorize performs one re-authorization handshake for a tool and
	// returns the consent URL the end user must visit, or an error when the
	// backend has no authorization flow.
	Authorize(ctx context.Context, qualifiedName string) (string, error)

	// Close releases backend connections.
	Close() error
}
