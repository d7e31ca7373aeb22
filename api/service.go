package api

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kiswi/dagflow/engine"
	"github.com/kiswi/dagflow/graph"
	"github.com/kiswi/dagflow/registry"
)

// Service implements the external interface surface against a
// GraphStore/RunStore pair and an Engine. It is transport-agnostic:
// cmd/dagflowd (or a test) decides how requests reach these methods.
type Service struct {
	graphs   registry.GraphStore
	runs     registry.RunStore
	eng      *engine.Engine
	validate *validator.Validate
}

// NewService wires a Service against the given stores and engine.
func NewService(graphs registry.GraphStore, runs registry.RunStore, eng *engine.Engine) *Service {
	return &Service{graphs: graphs, runs: runs, eng: eng, validate: validator.New()}
}

// AddNode validates and stores a new node.
func (s *Service) AddNode(ctx context.Context, req NodeData) (*graph.Node, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, translateValidationErrors(err)
	}
	n := req.toNode()
	if err := s.graphs.AddNode(ctx, n); err != nil {
		return nil, &ConflictError{Kind: "node", ID: req.ID}
	}
	return n, nil
}

// UpdateNode applies a partial update to an existing node.
func (s *Service) UpdateNode(ctx context.Context, id string, req NodeData) (*graph.Node, error) {
	if err := s.validate.Var(id, "required"); err != nil {
		return nil, translateValidationErrors(err)
	}
	n, err := s.graphs.UpdateNode(ctx, id, req.patch())
	if err != nil {
		return nil, &NotFoundError{Kind: "node", ID: id}
	}
	return n, nil
}

// DeleteNode removes a node, cascading to incident edges.
func (s *Service) DeleteNode(ctx context.Context, id string) error {
	if err := s.graphs.DeleteNode(ctx, id); err != nil {
		return &NotFoundError{Kind: "node", ID: id}
	}
	return nil
}

// AddEdge validates and stores a new edge.
func (s *Service) AddEdge(ctx context.Context, req EdgeData) (*graph.Edge, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, translateValidationErrors(err)
	}
	e := req.toEdge()
	if err := s.graphs.AddEdge(ctx, e); err != nil {
		return nil, &NotFoundError{Kind: "edge endpoint", ID: req.Src + "->" + req.Dst}
	}
	return e, nil
}

// DeleteEdge removes an edge, stripping parity from both endpoints.
func (s *Service) DeleteEdge(ctx context.Context, id string) error {
	if err := s.graphs.DeleteEdge(ctx, id); err != nil {
		return &NotFoundError{Kind: "edge", ID: id}
	}
	return nil
}

// FetchGraph projects the canonical graph against req without running
// it, reconstructing the full subgraph a run_config call against the
// same RunConfig would operate on.
func (s *Service) FetchGraph(ctx context.Context, req RunConfigRequest) (*graph.Graph, error) {
	snap, err := s.graphs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Project(snap, req.toRunConfig()), nil
}

// RunConfig resolves req against the canonical graph and, on success,
// commits a new RunRecord under a freshly generated run id. The
// submitted RunConfig is saved for audit before resolution is
// attempted, so a run that fails validation still leaves an audit
// trail even though no RunRecord is ever committed for it. On
// validation failure, no RunRecord is created and the Diagnostic is
// returned as the error.
func (s *Service) RunConfig(ctx context.Context, req RunConfigRequest) (*RunRecordSummary, error) {
	snap, err := s.graphs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	cfg := req.toRunConfig()
	runID := uuid.NewString()
	if err := s.runs.SaveRunConfig(ctx, runID, cfg); err != nil {
		return nil, err
	}

	resolved, diag := s.eng.Resolve(snap, cfg)
	if diag != nil {
		return nil, diag
	}

	rec := registry.RunRecord{
		RunID:        runID,
		ResolvedNode: resolved.Graph.Nodes,
		TopoOrder:    resolved.Traversals.TopoOrder,
		LevelOrder:   resolved.Traversals.LevelOrder,
		LeafOutputs:  leafOutputs(resolved),
		CommittedAt:  time.Now().UTC(),
	}
	if err := s.runs.CommitRun(ctx, rec); err != nil {
		return nil, err
	}

	return &RunRecordSummary{RunID: runID, TopoOrder: rec.TopoOrder, LevelOrder: rec.LevelOrder}, nil
}

func leafOutputs(resolved *engine.Resolved) map[string]graph.PortMap {
	out := make(map[string]graph.PortMap, len(resolved.Traversals.Leaves))
	for _, id := range resolved.Traversals.Leaves {
		if n, ok := resolved.Graph.Nodes[id]; ok {
			out[id] = n.DataOut.Clone()
		}
	}
	return out
}

// FetchIslands projects req against the canonical graph and returns its
// connected components without running it.
func (s *Service) FetchIslands(ctx context.Context, req RunConfigRequest) ([][]string, error) {
	snap, err := s.graphs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	projected := graph.Project(snap, req.toRunConfig())
	return engine.Islands(projected), nil
}

// GetGraph returns the derived traversals recorded for runID.
func (s *Service) GetGraph(ctx context.Context, runID string) (engine.Traversals, error) {
	trav, err := s.runs.GetGraph(ctx, runID)
	if err != nil {
		return engine.Traversals{}, &NotFoundError{Kind: "run", ID: runID}
	}
	return trav, nil
}

// NodeValue returns nodeID's data_out as recorded at runID.
func (s *Service) NodeValue(ctx context.Context, nodeID, runID string) (graph.PortMap, error) {
	out, err := s.runs.NodeValue(ctx, nodeID, runID)
	if err != nil {
		return nil, &NotFoundError{Kind: "node/run pair", ID: nodeID + "@" + runID}
	}
	return out, nil
}
