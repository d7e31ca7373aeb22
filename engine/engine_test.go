package engine

import (
	"testing"

	"github.com/kiswi/dagflow/graph"
	"github.com/kiswi/dagflow/graph/emit"
)

func buildChain(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	a := graph.NewNode("a")
	a.Mapping["in1"] = "out1"
	a.DataOut["out1"] = graph.Value{Type: "int"}
	b := graph.NewNode("b")
	b.Mapping["in1"] = "out1"
	b.DataIn["in1"] = graph.Value{Type: "int"}
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(graph.NewEdge("e1", "a", "b", map[string]string{"out1": "in1"}))
	return g
}

func TestEngine_Resolve_HappyPath(t *testing.T) {
	eng := New()
	g := buildChain(t)
	cfg := graph.RunConfig{RootInputs: map[string]graph.PortMap{
		"a": {"in1": {Literal: "5", Type: "int"}},
	}}

	resolved, diag := eng.Resolve(g, cfg)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	if got := resolved.Graph.Nodes["b"].DataOut["out1"].Literal; got != "5" {
		t.Errorf("b.DataOut[out1] = %q, want 5", got)
	}
	if len(resolved.Traversals.TopoOrder) != 2 {
		t.Errorf("expected 2-node topo order, got %v", resolved.Traversals.TopoOrder)
	}
}

func TestEngine_Resolve_EmptyProjectionRejected(t *testing.T) {
	eng := New()
	g := buildChain(t)
	cfg := graph.RunConfig{EnableList: []string{"ghost"}}

	resolved, diag := eng.Resolve(g, cfg)
	if resolved != nil {
		t.Fatal("expected nil Resolved on empty subgraph")
	}
	if diag == nil || diag.Kind != graph.KindEmptySubgraph {
		t.Fatalf("expected KindEmptySubgraph, got %v", diag)
	}
}

func TestEngine_Resolve_ValidationFailureStopsBeforePropagation(t *testing.T) {
	eng := New()
	g := graph.New()
	a := graph.NewNode("a") // no out1 declared
	b := graph.NewNode("b")
	b.DataIn["in1"] = graph.Value{Literal: "", Type: "int"}
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(graph.NewEdge("e1", "a", "b", map[string]string{"out1": "in1"}))

	cfg := graph.RunConfig{RootInputs: map[string]graph.PortMap{"a": {}}}
	resolved, diag := eng.Resolve(g, cfg)
	if resolved != nil {
		t.Fatal("expected nil Resolved on validation failure")
	}
	if diag == nil || diag.Kind != graph.KindMissingKey {
		t.Fatalf("expected KindMissingKey, got %v", diag)
	}
}

func TestEngine_Resolve_MaxProjectedNodesEnforced(t *testing.T) {
	eng := New(WithMaxProjectedNodes(1))
	g := buildChain(t)
	cfg := graph.RunConfig{RootInputs: map[string]graph.PortMap{"a": {}}}

	_, diag := eng.Resolve(g, cfg)
	if diag == nil || diag.Kind != graph.KindStorageError {
		t.Fatalf("expected a size-limit diagnostic, got %v", diag)
	}
}

func TestEngine_Resolve_MultiIslandPolicy(t *testing.T) {
	g := graph.New()
	_ = g.AddNode(graph.NewNode("a"))
	_ = g.AddNode(graph.NewNode("b")) // disconnected

	cfg := graph.RunConfig{RootInputs: map[string]graph.PortMap{"a": {}}}

	allowed := New()
	if _, diag := allowed.Resolve(g, cfg); diag != nil {
		t.Fatalf("expected multi-island run allowed by default, got %v", diag)
	}

	strict := New(WithIslandPolicy(true))
	if _, diag := strict.Resolve(g, cfg); diag == nil {
		t.Fatal("expected multi-island run rejected under strict policy")
	}
}

func TestEngine_Resolve_EmitsLifecycleEvents(t *testing.T) {
	buf := emit.NewBufferedEmitter()
	eng := New(WithEmitter(buf))
	g := buildChain(t)
	cfg := graph.RunConfig{RootInputs: map[string]graph.PortMap{
		"a": {"in1": {Literal: "1", Type: "int"}},
	}}

	if _, diag := eng.Resolve(g, cfg); diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}

	history := buf.GetHistoryWithFilter("", emit.HistoryFilter{Msg: "run_resolved"})
	if len(history) != 1 {
		t.Fatalf("expected 1 run_resolved event, got %d", len(history))
	}
}
