package engine

import (
	"time"

	"github.com/kiswi/dagflow/graph"
	"github.com/kiswi/dagflow/graph/emit"
)

// Engine runs the request-scoped synchronous pipeline: projection →
// validation → propagation → traversal. It performs no persistence
// itself — Resolve returns everything a caller needs to hand to a run
// registry to commit.
type Engine struct {
	cfg *config
}

// New constructs an Engine with the given options.
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{cfg: cfg}
}

// Resolved is the outcome of a single Resolve call: the propagated
// subgraph plus its derived traversals, ready for registry commit.
type Resolved struct {
	Graph      *graph.Graph
	Traversals Traversals
}

// Resolve runs projection, validation, propagation, and traversal over
// the canonical graph canonical, in that order. It mutates nothing on
// canonical: Project clones before any write happens.
//
// On a validation failure it returns a non-nil *graph.Diagnostic and a
// nil Resolved — no propagation or traversal is attempted; validation
// errors are surfaced to the caller verbatim and are not retried.
func (e *Engine) Resolve(canonical *graph.Graph, cfg graph.RunConfig) (*Resolved, *graph.Diagnostic) {
	start := time.Now()
	if e.cfg.metrics != nil {
		e.cfg.metrics.StartRun()
		defer func() { e.cfg.metrics.FinishRun(time.Since(start)) }()
	}

	projected := graph.Project(canonical, cfg)

	if len(projected.Nodes) == 0 {
		diag := graph.EmptySubgraph()
		e.emitDiagnostic(diag)
		return nil, diag
	}
	if e.cfg.maxProjectedNodes > 0 && len(projected.Nodes) > e.cfg.maxProjectedNodes {
		diag := &graph.Diagnostic{Kind: graph.KindStorageError, Detail: "projected subgraph exceeds configured node limit"}
		e.emitDiagnostic(diag)
		return nil, diag
	}

	if diag := graph.Validate(projected, cfg); diag != nil {
		e.emitDiagnostic(diag)
		return nil, diag
	}

	if e.cfg.rejectMultiIsland {
		if islands := Islands(projected); len(islands) > 1 {
			diag := &graph.Diagnostic{Kind: graph.KindStorageError, Detail: "projected subgraph has more than one connected component"}
			e.emitDiagnostic(diag)
			return nil, diag
		}
	}

	Propagate(projected, cfg, e.recordWrite)
	traversals := Derive(projected, cfg)

	e.cfg.emitter.Emit(emit.Event{
		Msg: "run_resolved",
		Meta: map[string]interface{}{
			"node_count": len(projected.Nodes),
			"islands":    len(traversals.Islands),
		},
	})

	return &Resolved{Graph: projected, Traversals: traversals}, nil
}

// recordWrite forwards a single write-ledger decision to metrics, if
// configured. Passed to Propagate as its onWrite callback.
func (e *Engine) recordWrite(outcome string) {
	if e.cfg.metrics != nil {
		e.cfg.metrics.RecordPropagationWrite(outcome)
	}
}

func (e *Engine) emitDiagnostic(diag *graph.Diagnostic) {
	if e.cfg.metrics != nil {
		e.cfg.metrics.RecordValidationFailure(string(diag.Kind))
	}
	e.cfg.emitter.Emit(emit.Event{
		Msg: "validation_failed",
		Meta: map[string]interface{}{
			"kind":    string(diag.Kind),
			"node_id": diag.NodeID,
			"edge_id": diag.EdgeID,
			"detail":  diag.Detail,
		},
	})
}
