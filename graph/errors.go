package graph

import "fmt"

// Kind identifies a category of validation or lookup failure.
type Kind string

const (
	KindMissingKey      Kind = "MissingKey"
	KindTypeMismatch    Kind = "TypeMismatch"
	KindDuplicateEdge   Kind = "DuplicateEdge"
	KindCycle           Kind = "Cycle"
	KindParityViolation Kind = "ParityViolation"
	KindUnknownNode     Kind = "UnknownNode"
	KindUnknownEdge     Kind = "UnknownEdge"
	KindUnknownRun      Kind = "UnknownRun"
	KindEmptySubgraph   Kind = "EmptySubgraph"
	KindStorageError    Kind = "StorageError"
)

// Diagnostic is the structured failure the validator and related
// operations return to callers. It is never retried by the engine: bad
// input must be corrected by the caller.
type Diagnostic struct {
	Kind   Kind
	NodeID string
	EdgeID string
	Detail string
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	switch {
	case d.NodeID != "" && d.EdgeID != "":
		return fmt.Sprintf("%s: node=%s edge=%s: %s", d.Kind, d.NodeID, d.EdgeID, d.Detail)
	case d.NodeID != "":
		return fmt.Sprintf("%s: node=%s: %s", d.Kind, d.NodeID, d.Detail)
	case d.EdgeID != "":
		return fmt.Sprintf("%s: edge=%s: %s", d.Kind, d.EdgeID, d.Detail)
	default:
		return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
	}
}

func missingKey(nodeID, edgeID, detail string) *Diagnostic {
	return &Diagnostic{Kind: KindMissingKey, NodeID: nodeID, EdgeID: edgeID, Detail: detail}
}

func typeMismatch(nodeID, edgeID, detail string) *Diagnostic {
	return &Diagnostic{Kind: KindTypeMismatch, NodeID: nodeID, EdgeID: edgeID, Detail: detail}
}

func duplicateEdge(nodeID, edgeID, detail string) *Diagnostic {
	return &Diagnostic{Kind: KindDuplicateEdge, NodeID: nodeID, EdgeID: edgeID, Detail: detail}
}

func cycleDetected(nodeID, detail string) *Diagnostic {
	return &Diagnostic{Kind: KindCycle, NodeID: nodeID, Detail: detail}
}

func parityViolation(nodeID, edgeID, detail string) *Diagnostic {
	return &Diagnostic{Kind: KindParityViolation, NodeID: nodeID, EdgeID: edgeID, Detail: detail}
}

// UnknownNode returns a Diagnostic for a referential lookup failure on a
// node id.
func UnknownNode(nodeID string) *Diagnostic {
	return &Diagnostic{Kind: KindUnknownNode, NodeID: nodeID, Detail: "node does not exist"}
}

// UnknownEdge returns a Diagnostic for a referential lookup failure on an
// edge id.
func UnknownEdge(edgeID string) *Diagnostic {
	return &Diagnostic{Kind: KindUnknownEdge, EdgeID: edgeID, Detail: "edge does not exist"}
}

// UnknownRun returns a Diagnostic for a registry lookup against a
// run_id with no committed RunRecord.
func UnknownRun(runID string) *Diagnostic {
	return &Diagnostic{Kind: KindUnknownRun, Detail: "unknown run_id: " + runID}
}

// EmptySubgraph returns a Diagnostic for a projection that retains no
// nodes.
func EmptySubgraph() *Diagnostic {
	return &Diagnostic{Kind: KindEmptySubgraph, Detail: "projected subgraph has no nodes"}
}

// StorageError wraps an opaque lower-layer failure as a Diagnostic.
func StorageError(detail string) *Diagnostic {
	return &Diagnostic{Kind: KindStorageError, Detail: detail}
}
