// Package logging provides a minimal logging interface and adapters for
// hivemesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) the coordination components use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - MeshLogger with contextual cloning helpers and domain-specific
//     logging for assignments, routing and liveness
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mesh := hivemesh.New(func(o *hivemesh.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
