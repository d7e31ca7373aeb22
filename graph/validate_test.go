package graph

import "testing"

func wireNode(id string) *Node {
	n := NewNode(id)
	return n
}

func TestValidate_WellFormedGraph(t *testing.T) {
	g := New()
	a := wireNode("a")
	a.DataOut["out1"] = Value{Literal: "1", Type: "int"}
	b := wireNode("b")
	b.DataIn["in1"] = Value{Literal: "", Type: "int"}
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(NewEdge("e1", "a", "b", map[string]string{"out1": "in1"}))

	cfg := RunConfig{RootInputs: map[string]PortMap{"a": {}}}
	if diag := Validate(g, cfg); diag != nil {
		t.Fatalf("expected no diagnostic, got %v", diag)
	}
}

func TestValidate_MissingKey_SourcePort(t *testing.T) {
	g := New()
	a := wireNode("a") // no out1 declared
	b := wireNode("b")
	b.DataIn["in1"] = Value{Literal: "", Type: "int"}
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(NewEdge("e1", "a", "b", map[string]string{"out1": "in1"}))

	diag := Validate(g, RunConfig{RootInputs: map[string]PortMap{"a": {}}})
	if diag == nil || diag.Kind != KindMissingKey {
		t.Fatalf("expected KindMissingKey, got %v", diag)
	}
}

func TestValidate_TypeMismatch(t *testing.T) {
	g := New()
	a := wireNode("a")
	a.DataOut["out1"] = Value{Literal: "1", Type: "int"}
	b := wireNode("b")
	b.DataIn["in1"] = Value{Literal: "", Type: "str"}
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(NewEdge("e1", "a", "b", map[string]string{"out1": "in1"}))

	diag := Validate(g, RunConfig{RootInputs: map[string]PortMap{"a": {}}})
	if diag == nil || diag.Kind != KindTypeMismatch {
		t.Fatalf("expected KindTypeMismatch, got %v", diag)
	}
}

func TestValidate_Cycle(t *testing.T) {
	g := New()
	a := wireNode("a")
	a.DataOut["out1"] = Value{Literal: "1", Type: "int"}
	a.DataIn["in1"] = Value{Literal: "", Type: "int"}
	b := wireNode("b")
	b.DataOut["out1"] = Value{Literal: "1", Type: "int"}
	b.DataIn["in1"] = Value{Literal: "", Type: "int"}
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(NewEdge("e1", "a", "b", map[string]string{"out1": "in1"}))
	_ = g.AddEdge(NewEdge("e2", "b", "a", map[string]string{"out1": "in1"}))

	diag := Validate(g, RunConfig{RootInputs: map[string]PortMap{"a": {}}})
	if diag == nil || diag.Kind != KindCycle {
		t.Fatalf("expected KindCycle, got %v", diag)
	}
}

func TestValidate_DuplicateEdge(t *testing.T) {
	g := New()
	a := wireNode("a")
	a.DataOut["out1"] = Value{Literal: "1", Type: "int"}
	a.DataOut["out2"] = Value{Literal: "2", Type: "int"}
	b := wireNode("b")
	b.DataIn["in1"] = Value{Literal: "", Type: "int"}
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(NewEdge("e1", "a", "b", map[string]string{"out1": "in1"}))
	_ = g.AddEdge(NewEdge("e2", "a", "b", map[string]string{"out1": "in1"}))

	diag := Validate(g, RunConfig{RootInputs: map[string]PortMap{"a": {}}})
	if diag == nil || diag.Kind != KindDuplicateEdge {
		t.Fatalf("expected KindDuplicateEdge, got %v", diag)
	}
}

func TestValidate_UnreachableNodesAreNotVisited(t *testing.T) {
	g := New()
	a := wireNode("a")
	island := wireNode("island") // no edges, not a declared root
	_ = g.AddNode(a)
	_ = g.AddNode(island)

	diag := Validate(g, RunConfig{RootInputs: map[string]PortMap{"a": {}}})
	if diag != nil {
		t.Fatalf("expected no diagnostic for an unreached island, got %v", diag)
	}
}

func TestValidate_UnknownRootIsIgnored(t *testing.T) {
	g := New()
	_ = g.AddNode(wireNode("a"))

	diag := Validate(g, RunConfig{RootInputs: map[string]PortMap{"ghost": {}}})
	if diag != nil {
		t.Fatalf("expected unknown root to be silently skipped here, got %v", diag)
	}
}
