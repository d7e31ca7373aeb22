package graph

import "testing"

func TestDiagnostic_Error_Formatting(t *testing.T) {
	cases := []struct {
		name string
		diag *Diagnostic
		want string
	}{
		{"node and edge", &Diagnostic{Kind: KindMissingKey, NodeID: "a", EdgeID: "e1", Detail: "boom"}, "MissingKey: node=a edge=e1: boom"},
		{"node only", &Diagnostic{Kind: KindCycle, NodeID: "a", Detail: "boom"}, "Cycle: node=a: boom"},
		{"edge only", &Diagnostic{Kind: KindUnknownEdge, EdgeID: "e1", Detail: "boom"}, "UnknownEdge: edge=e1: boom"},
		{"neither", &Diagnostic{Kind: KindEmptySubgraph, Detail: "boom"}, "EmptySubgraph: boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.diag.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUnknownNode(t *testing.T) {
	diag := UnknownNode("x")
	if diag.Kind != KindUnknownNode || diag.NodeID != "x" {
		t.Errorf("unexpected diagnostic: %+v", diag)
	}
}

func TestUnknownEdge(t *testing.T) {
	diag := UnknownEdge("e1")
	if diag.Kind != KindUnknownEdge || diag.EdgeID != "e1" {
		t.Errorf("unexpected diagnostic: %+v", diag)
	}
}

func TestEmptySubgraph(t *testing.T) {
	diag := EmptySubgraph()
	if diag.Kind != KindEmptySubgraph {
		t.Errorf("unexpected diagnostic: %+v", diag)
	}
}

func TestStorageError(t *testing.T) {
	diag := StorageError("disk full")
	if diag.Kind != KindStorageError || diag.Detail != "disk full" {
		t.Errorf("unexpected diagnostic: %+v", diag)
	}
}
