package graph

import "testing"

func threeNodeChain(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		n := NewNode(id)
		n.DataOut["out1"] = Value{Literal: "1", Type: "int"}
		n.DataIn["in1"] = Value{Literal: "", Type: "int"}
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode %s: %v", id, err)
		}
	}
	_ = g.AddEdge(NewEdge("e_ab", "a", "b", map[string]string{"out1": "in1"}))
	_ = g.AddEdge(NewEdge("e_bc", "b", "c", map[string]string{"out1": "in1"}))
	return g
}

func TestProject_NoFilters_KeepsEverything(t *testing.T) {
	g := threeNodeChain(t)
	projected := Project(g, RunConfig{})
	if len(projected.Nodes) != 3 || len(projected.Edges) != 2 {
		t.Errorf("expected full graph retained, got %d nodes %d edges", len(projected.Nodes), len(projected.Edges))
	}
}

func TestProject_EnableList_RestrictsToNamed(t *testing.T) {
	g := threeNodeChain(t)
	projected := Project(g, RunConfig{EnableList: []string{"a", "b"}})

	if len(projected.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(projected.Nodes))
	}
	if _, ok := projected.Nodes["c"]; ok {
		t.Error("expected c excluded")
	}
	if _, ok := projected.Edges["e_bc"]; ok {
		t.Error("expected edge to excluded node dropped")
	}
}

func TestProject_DisableList_ExcludesNamed(t *testing.T) {
	g := threeNodeChain(t)
	projected := Project(g, RunConfig{DisableList: []string{"c"}})

	if len(projected.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(projected.Nodes))
	}
	if _, ok := projected.Nodes["c"]; ok {
		t.Error("expected c excluded")
	}
}

func TestProject_EqualEnableDisable_ProducesEmptySubgraph(t *testing.T) {
	g := threeNodeChain(t)
	projected := Project(g, RunConfig{
		EnableList:  []string{"a", "b"},
		DisableList: []string{"a", "b"},
	})
	if len(projected.Nodes) != 0 {
		t.Errorf("expected empty subgraph, got %d nodes", len(projected.Nodes))
	}
}

func TestProject_ReDerivesPathListsAgainstSurvivingEdges(t *testing.T) {
	g := threeNodeChain(t)
	projected := Project(g, RunConfig{EnableList: []string{"a", "b"}})

	b := projected.Nodes["b"]
	if len(b.PathsOut) != 0 {
		t.Errorf("expected b.PathsOut empty once c is excluded, got %v", b.PathsOut)
	}
	if len(b.PathsIn) != 1 || b.PathsIn[0] != "e_ab" {
		t.Errorf("expected b.PathsIn = [e_ab], got %v", b.PathsIn)
	}
}

func TestProject_DoesNotMutateCanonicalGraph(t *testing.T) {
	g := threeNodeChain(t)
	_ = Project(g, RunConfig{EnableList: []string{"a"}})

	if len(g.Nodes) != 3 || len(g.Edges) != 2 {
		t.Error("expected canonical graph untouched by projection")
	}
}
