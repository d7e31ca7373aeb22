package registry

import (
	"context"
	"sync"

	"github.com/kiswi/dagflow/engine"
	"github.com/kiswi/dagflow/graph"
)

// MemoryStore is an in-process GraphStore and RunStore backed by plain
// maps guarded by a pair of mutexes: one for the canonical graph, one
// for the run registry and its per-node index — the two resources are
// independent and need not be serialized against each other.
type MemoryStore struct {
	graphMu sync.RWMutex
	graph   *graph.Graph

	runMu     sync.RWMutex
	runs      map[string]RunRecord
	nodeIdx   map[string]map[string]graph.PortMap // node_id -> run_id -> data_out
	runConfig map[string]graph.RunConfig          // run_id -> submitted RunConfig, for audit
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		graph:     graph.New(),
		runs:      map[string]RunRecord{},
		nodeIdx:   map[string]map[string]graph.PortMap{},
		runConfig: map[string]graph.RunConfig{},
	}
}

var (
	_ GraphStore = (*MemoryStore)(nil)
	_ RunStore   = (*MemoryStore)(nil)
)

func (m *MemoryStore) AddNode(_ context.Context, n *graph.Node) error {
	m.graphMu.Lock()
	defer m.graphMu.Unlock()
	return m.graph.AddNode(n)
}

// UpdateNode applies a partial update: any non-nil field on patch
// overwrites the stored node's corresponding field. DataIn/DataOut/
// Mapping are replaced wholesale when present in patch, not deep-merged.
func (m *MemoryStore) UpdateNode(_ context.Context, id string, patch *graph.Node) (*graph.Node, error) {
	m.graphMu.Lock()
	defer m.graphMu.Unlock()

	n, ok := m.graph.Nodes[id]
	if !ok {
		return nil, graph.UnknownNode(id)
	}
	if patch.DataIn != nil {
		n.DataIn = patch.DataIn.Clone()
	}
	if patch.DataOut != nil {
		n.DataOut = patch.DataOut.Clone()
	}
	if patch.Mapping != nil {
		mapping := make(map[string]string, len(patch.Mapping))
		for k, v := range patch.Mapping {
			mapping[k] = v
		}
		n.Mapping = mapping
	}
	return n.Clone(), nil
}

func (m *MemoryStore) DeleteNode(_ context.Context, id string) error {
	m.graphMu.Lock()
	defer m.graphMu.Unlock()
	return m.graph.DeleteNode(id)
}

func (m *MemoryStore) AddEdge(_ context.Context, e *graph.Edge) error {
	m.graphMu.Lock()
	defer m.graphMu.Unlock()
	return m.graph.AddEdge(e)
}

func (m *MemoryStore) DeleteEdge(_ context.Context, id string) error {
	m.graphMu.Lock()
	defer m.graphMu.Unlock()
	return m.graph.DeleteEdge(id)
}

func (m *MemoryStore) Snapshot(_ context.Context) (*graph.Graph, error) {
	m.graphMu.RLock()
	defer m.graphMu.RUnlock()
	return m.graph.Clone(), nil
}

// SaveRunConfig records the RunConfig submitted for runID, for audit
// and replay. Called by the api layer before CommitRun, since a
// RunConfig that fails validation never reaches a committed run but is
// still worth keeping for diagnostics.
func (m *MemoryStore) SaveRunConfig(_ context.Context, runID string, cfg graph.RunConfig) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	m.runConfig[runID] = cfg
	return nil
}

// CommitRun records rec and fans its resolved nodes out to the
// per-node index. Both maps are updated under the same lock, so a
// concurrent reader never observes the run record without its index
// entries or vice versa.
func (m *MemoryStore) CommitRun(_ context.Context, rec RunRecord) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	m.runs[rec.RunID] = rec
	for nodeID, n := range rec.ResolvedNode {
		byRun, ok := m.nodeIdx[nodeID]
		if !ok {
			byRun = map[string]graph.PortMap{}
			m.nodeIdx[nodeID] = byRun
		}
		byRun[rec.RunID] = n.DataOut.Clone()
	}
	return nil
}

func (m *MemoryStore) GetGraph(_ context.Context, runID string) (engine.Traversals, error) {
	m.runMu.RLock()
	defer m.runMu.RUnlock()

	rec, ok := m.runs[runID]
	if !ok {
		return engine.Traversals{}, graph.UnknownRun(runID)
	}
	leaves := make([]string, 0, len(rec.LeafOutputs))
	for id := range rec.LeafOutputs {
		leaves = append(leaves, id)
	}
	return engine.Traversals{
		TopoOrder:  append([]string(nil), rec.TopoOrder...),
		LevelOrder: append([][]string(nil), rec.LevelOrder...),
		Leaves:     leaves,
	}, nil
}

func (m *MemoryStore) NodeValue(_ context.Context, nodeID, runID string) (graph.PortMap, error) {
	m.runMu.RLock()
	defer m.runMu.RUnlock()

	byRun, ok := m.nodeIdx[nodeID]
	if !ok {
		return nil, graph.UnknownRun(runID)
	}
	out, ok := byRun[runID]
	if !ok {
		return nil, graph.UnknownRun(runID)
	}
	return out.Clone(), nil
}
