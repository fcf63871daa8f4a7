// Package logging provides a minimal logging interface and adapters for the
// negotiation engine.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine, service, sweeper and transport use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - NegotiationLogger wrapping Go's structured logging with negotiation context
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	svc := negotiate.New(func(o *negotiate.Options) { o.Logger = logger })
package logging
