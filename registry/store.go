// Package registry provides the canonical-graph store and the run
// registry: it records resolved graphs and their derived traversals
// under run identifiers chosen by the caller, and answers per-node
// lookups. Implementations are append-only for RunRecords and
// copy-on-write for the per-node index.
package registry

import (
	"context"
	"time"

	"github.com/kiswi/dagflow/engine"
	"github.com/kiswi/dagflow/graph"
)

// RunRecord is an immutable commit of a single run's resolved graph and
// derived traversals.
type RunRecord struct {
	RunID        string                   `json:"run_id"`
	ResolvedNode map[string]*graph.Node   `json:"resolved_nodes"`
	TopoOrder    []string                 `json:"topo_order"`
	LevelOrder   [][]string               `json:"level_order"`
	LeafOutputs  map[string]graph.PortMap `json:"leaf_outputs"`
	CommittedAt  time.Time                `json:"committed_at"`
}

// GraphStore is the canonical-graph CRUD surface: add/update/
// delete nodes and edges, with cascading delete semantics maintained by
// the implementation, not the core engine.
type GraphStore interface {
	AddNode(ctx context.Context, n *graph.Node) error
	UpdateNode(ctx context.Context, id string, patch *graph.Node) (*graph.Node, error)
	DeleteNode(ctx context.Context, id string) error

	AddEdge(ctx context.Context, e *graph.Edge) error
	DeleteEdge(ctx context.Context, id string) error

	// Snapshot returns a clone of the full canonical graph, safe for the
	// caller to project and mutate without affecting the store.
	Snapshot(ctx context.Context) (*graph.Graph, error)
}

// RunStore is the run registry surface.
type RunStore interface {
	// SaveRunConfig records the RunConfig submitted for runID, for audit
	// and replay. Called before CommitRun so a run that fails validation
	// still leaves an audit trail even though no RunRecord is ever
	// committed for it.
	SaveRunConfig(ctx context.Context, runID string, cfg graph.RunConfig) error

	// CommitRun atomically persists rec and its per-node index entries.
	// Either everything commits or nothing does.
	CommitRun(ctx context.Context, rec RunRecord) error

	// GetGraph returns the derived traversals recorded for runID.
	GetGraph(ctx context.Context, runID string) (engine.Traversals, error)

	// NodeValue returns nodeID's data_out as recorded at runID.
	NodeValue(ctx context.Context, nodeID, runID string) (graph.PortMap, error)
}
