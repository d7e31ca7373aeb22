// Package emit provides event emission and observability for graph
// resolution: validation failures, propagation writes, and run commits.
package emit

import "context"

// Emitter receives and processes observability events from graph
// resolution.
//
// Emitters enable pluggable observability backends:
//   - Logging: stdout, files, syslog.
//   - Distributed tracing: OpenTelemetry.
//   - Metrics: Prometheus, StatsD.
//
// Implementations should be:
//   - Non-blocking: never slow down Resolve.
//   - Thread-safe: may be called concurrently across runs.
//   - Resilient: handle failures gracefully, never panic.
type Emitter interface {
	// Emit sends a single observability event to the configured
	// backend. Must not block resolution or panic; failures should be
	// logged internally, not surfaced to the caller.
	Emit(event Event)

	// EmitBatch sends multiple events in a single operation, preserving
	// emission order. Returns error only on catastrophic failures (for
	// example, a misconfigured backend); individual event failures
	// should be logged and swallowed.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush ensures all buffered events reach the backend. Safe to call
	// multiple times. Should be called before process shutdown.
	Flush(ctx context.Context) error
}
