package emit

import "context"

// NullEmitter implements Emitter by discarding all events.
//
// Use cases:
//   - Deployments where observability overhead is unwanted.
//   - Tests that don't assert on emitted events.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter. Safe for concurrent use, zero
// overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards event.
func (n *NullEmitter) Emit(event Event) {}

// EmitBatch discards events. Always returns nil.
func (n *NullEmitter) EmitBatch(_ context.Context, events []Event) error {
	return nil
}

// Flush is a no-op. Always returns nil.
func (n *NullEmitter) Flush(_ context.Context) error {
	return nil
}
