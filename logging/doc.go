// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer RouteLogger with contextual
// helpers (session, request, component) and domain specific logging helpers
// for tools, models and routing decisions.
package logging
