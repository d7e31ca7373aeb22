package emit

// Event is an observability event emitted during graph resolution. The
// engine emits one for each validation failure and each resolved run.
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Feed a metrics backend
//   - Be discarded entirely
type Event struct {
	// RunID identifies the run that emitted this event. Empty for
	// events emitted before a run id has been assigned — a validation
	// failure never reaches the registry and so never gets one.
	RunID string

	// NodeID identifies which node the event concerns. Empty for
	// run-level events.
	NodeID string

	// EdgeID identifies which edge the event concerns, if any.
	EdgeID string

	// Msg is a short event name. The engine emits "validation_failed"
	// and "run_resolved".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Keys the engine sets:
	//   - "kind", "node_id", "edge_id", "detail": for validation_failed events
	//   - "node_count", "islands": for run_resolved events
	Meta map[string]interface{}
}
