// Package gateway defines the tool-execution boundary agents call through.
// A Gateway discovers tools, executes them and performs the re-authorization
// handshake when a tool reports a permission-denied condition. Bindings are
// small per-tool descriptors (qualified name, schema, gateway handle) with a
// single generic invocation routine, so no per-tool closures are generated at
// startup.
package gateway
