package emit

import (
	"context"
	"testing"
)

type mockEmitter struct {
	events []Event
}

func (m *mockEmitter) Emit(event Event) {
	m.events = append(m.events, event)
}

func (m *mockEmitter) EmitBatch(_ context.Context, events []Event) error {
	m.events = append(m.events, events...)
	return nil
}

func (m *mockEmitter) Flush(_ context.Context) error {
	return nil
}

func TestEmitter_InterfaceContract(t *testing.T) {
	var _ Emitter = (*mockEmitter)(nil)
}

func TestEmitter_Emit(t *testing.T) {
	e := &mockEmitter{}
	e.Emit(Event{RunID: "run-001", Msg: "validation_failed"})
	e.Emit(Event{RunID: "run-001", Msg: "run_resolved"})

	if len(e.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(e.events))
	}
	if e.events[0].Msg != "validation_failed" {
		t.Errorf("events[0].Msg = %q", e.events[0].Msg)
	}
}

func TestEmitter_EmitBatch(t *testing.T) {
	e := &mockEmitter{}
	err := e.EmitBatch(context.Background(), []Event{
		{RunID: "run-001", Msg: "a"},
		{RunID: "run-001", Msg: "b"},
	})
	if err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if len(e.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(e.events))
	}
}
