package graph

import "testing"

func TestNewEdge_NilKeyMapNormalizes(t *testing.T) {
	e := NewEdge("e1", "a", "b", nil)
	if e.KeyMap == nil {
		t.Fatal("expected non-nil KeyMap")
	}
	if !e.IsDependencyOnly() {
		t.Error("expected empty KeyMap to be dependency-only")
	}
}

func TestEdge_IsDependencyOnly(t *testing.T) {
	dataEdge := NewEdge("e1", "a", "b", map[string]string{"out1": "in1"})
	if dataEdge.IsDependencyOnly() {
		t.Error("expected edge with a key map to carry data")
	}

	depEdge := NewEdge("e2", "a", "b", map[string]string{})
	if !depEdge.IsDependencyOnly() {
		t.Error("expected edge with empty key map to be dependency-only")
	}
}

func TestEdge_Clone_Independence(t *testing.T) {
	e := NewEdge("e1", "a", "b", map[string]string{"out1": "in1"})
	clone := e.Clone()
	clone.KeyMap["out1"] = "mutated"

	if e.KeyMap["out1"] != "in1" {
		t.Error("expected original edge's KeyMap unaffected by clone mutation")
	}
	if clone.ID != e.ID || clone.Src != e.Src || clone.Dst != e.Dst {
		t.Error("expected clone to preserve id/src/dst")
	}
}
