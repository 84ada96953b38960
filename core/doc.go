// Package core provides the shared content types exchanged between model
// providers, tool bindings and agents. It defines:
//
//   - Content (role + ordered heterogeneous parts)
//   - Part variants (text, function call, function response)
//
// The package intentionally keeps implementation concerns (providers, the
// routing engine, tool gateways) out of scope so higher layers stay decoupled
// from vendor SDKs.
package core
