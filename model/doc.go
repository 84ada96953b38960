// Package model defines the provider-agnostic abstractions for interacting
// with language models inside agentroute.
//
// Core goals:
//   - Normalize tool / function call representation (ToolDefinition)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agents, the routing engine) remain decoupled from
// vendor SDKs. Generation is synchronous: the orchestrator consumes whole
// responses only.
package model
