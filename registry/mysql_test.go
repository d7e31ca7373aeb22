package registry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kiswi/dagflow/graph"
)

// MySQL tests require a live server. Set TEST_MYSQL_DSN to run them,
// e.g. export TEST_MYSQL_DSN="user:pass@tcp(localhost:3306)/dagflow_test".
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("skipping MySQL tests: TEST_MYSQL_DSN not set")
	}
	return dsn
}

func newTestMySQLStore(t *testing.T) *MySQLStore {
	t.Helper()
	dsn := getTestDSN(t)
	s, err := NewMySQLStore(dsn)
	if err != nil {
		t.Fatalf("failed to open mysql store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMySQLStore_Ping(t *testing.T) {
	s := newTestMySQLStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMySQLStore_NewConnection_InvalidDSN(t *testing.T) {
	getTestDSN(t) // gate on TEST_MYSQL_DSN so CI without a server skips cleanly
	if _, err := NewMySQLStore("not a valid dsn"); err == nil {
		t.Error("expected error with invalid DSN")
	}
}

func TestMySQLStore_AddNode_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestMySQLStore(t)
	id := uniqueID(t)
	if err := s.AddNode(ctx, graph.NewNode(id)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddNode(ctx, graph.NewNode(id)); err == nil {
		t.Fatal("expected duplicate node id rejected")
	}
}

func TestMySQLStore_AddEdge_MaintainsParity(t *testing.T) {
	ctx := context.Background()
	s := newTestMySQLStore(t)
	a, b, e := uniqueID(t)+"-a", uniqueID(t)+"-b", uniqueID(t)+"-e"
	_ = s.AddNode(ctx, graph.NewNode(a))
	_ = s.AddNode(ctx, graph.NewNode(b))
	if err := s.AddEdge(ctx, graph.NewEdge(e, a, b, map[string]string{"out1": "in1"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Nodes[a].PathsOut) != 1 || snap.Nodes[a].PathsOut[0] != e {
		t.Errorf("a.PathsOut = %v, want [%s]", snap.Nodes[a].PathsOut, e)
	}
}

func TestMySQLStore_DeleteNode_CascadesEdges(t *testing.T) {
	ctx := context.Background()
	s := newTestMySQLStore(t)
	a, b, e := uniqueID(t)+"-a", uniqueID(t)+"-b", uniqueID(t)+"-e"
	_ = s.AddNode(ctx, graph.NewNode(a))
	_ = s.AddNode(ctx, graph.NewNode(b))
	_ = s.AddEdge(ctx, graph.NewEdge(e, a, b, nil))

	if err := s.DeleteNode(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, _ := s.Snapshot(ctx)
	if _, ok := snap.Edges[e]; ok {
		t.Error("expected cascading edge deletion")
	}
}

func TestMySQLStore_CommitRun_AndLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestMySQLStore(t)
	runID := uniqueID(t)

	rec := RunRecord{
		RunID: runID,
		ResolvedNode: map[string]*graph.Node{
			"a": {DataOut: graph.PortMap{"out1": {Literal: "5", Type: "int"}}},
		},
		TopoOrder:   []string{"a"},
		LevelOrder:  [][]string{{"a"}},
		LeafOutputs: map[string]graph.PortMap{"a": {"out1": {Literal: "5", Type: "int"}}},
		CommittedAt: time.Unix(0, 0).UTC(),
	}
	if err := s.CommitRun(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trav, err := s.GetGraph(ctx, runID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trav.TopoOrder) != 1 || trav.TopoOrder[0] != "a" {
		t.Errorf("unexpected topo order: %v", trav.TopoOrder)
	}

	out, err := s.NodeValue(ctx, "a", runID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["out1"].Literal != "5" {
		t.Errorf("NodeValue = %v, want out1=5", out)
	}
}

func TestMySQLStore_GetGraph_UnknownRunID(t *testing.T) {
	ctx := context.Background()
	s := newTestMySQLStore(t)
	if _, err := s.GetGraph(ctx, "ghost-run-id-that-does-not-exist"); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}

func TestMySQLStore_SaveRunConfig_Upserts(t *testing.T) {
	ctx := context.Background()
	s := newTestMySQLStore(t)
	runID := uniqueID(t)
	cfg := graph.RunConfig{RootInputs: map[string]graph.PortMap{"a": {}}}

	if err := s.SaveRunConfig(ctx, runID, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SaveRunConfig(ctx, runID, cfg); err != nil {
		t.Fatalf("expected upsert on duplicate run_id to succeed, got: %v", err)
	}
}

// uniqueID returns a short id scoped to the running test, so parallel
// MySQL test runs against a shared database don't collide on primary
// keys.
func uniqueID(t *testing.T) string {
	t.Helper()
	return "t-" + t.Name()
}

var (
	_ GraphStore = (*MySQLStore)(nil)
	_ RunStore   = (*MySQLStore)(nil)
)
