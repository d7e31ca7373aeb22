// Package engine implements the propagator (scheduler) and traversal
// producer that run on top of a projected, validated graph.Graph: BFS
// data propagation under the write-ledger tie-break discipline, and the
// derived topological order, level order, leaf set, and connected
// components.
package engine

import (
	"sort"

	"github.com/kiswi/dagflow/graph"
)

// frontierItem is a schedulable unit of BFS work: a node to (re-)visit
// at a given propagation depth. Propagation within a single run never
// runs concurrently — the write-ledger tie-break discipline is
// inherently sequential — so the frontier is a plain FIFO queue rather
// than a priority heap with backpressure.
type frontierItem struct {
	nodeID string
	depth  int
}

// writer identifies the provenance currently installed at a destination
// port: the depth at which the write happened and the id of the node
// that performed it.
type writer struct {
	depth int
	srcID string
}

// ledgerKey addresses a single destination port for write-ledger
// bookkeeping.
type ledgerKey struct {
	nodeID string
	port   string
}

// Propagate seeds roots, applies data overwrites, and then runs the
// breadth-first propagation to completion, mutating g's node port maps
// in place. g is expected to already be a run-scoped projection
// (graph.Project) that has passed graph.Validate.
//
// onWrite, if non-nil, is called once per write-ledger decision with its
// outcome ("accept_first", "accept_shallower", "accept_tiebreak",
// "reject"). Dependency-only edges never touch the write-ledger, so they
// never produce a call. Passing a nil onWrite keeps Propagate a pure
// function of (g, cfg) for tests that don't care about instrumentation.
func Propagate(g *graph.Graph, cfg graph.RunConfig, onWrite func(outcome string)) {
	ledger := make(map[ledgerKey]writer)
	queue := make([]frontierItem, 0, len(g.Nodes))

	// Step 1 — seed roots.
	for _, rootID := range cfg.RootIDs() {
		n, ok := g.Nodes[rootID]
		if !ok {
			continue
		}
		n.DataIn = cfg.RootInputs[rootID].Clone()
		if n.DataIn == nil {
			n.DataIn = graph.PortMap{}
		}
		n.ApplyMapping()
		queue = append(queue, frontierItem{nodeID: rootID, depth: 0})
	}

	// Step 2 — apply overrides, but only to nodes present in the
	// projection. An overwrite targeting a disabled or unreachable node
	// is silently inert rather than an error (see DESIGN.md).
	for _, nodeID := range sortedKeys(cfg.DataOverwrites) {
		n, ok := g.Nodes[nodeID]
		if !ok {
			continue
		}
		for port, v := range cfg.DataOverwrites[nodeID] {
			if n.DataIn == nil {
				n.DataIn = graph.PortMap{}
			}
			n.DataIn[port] = v
		}
		n.ApplyMapping()
	}

	// Step 3 — breadth-first propagation with tie-breaking.
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		n, ok := g.Nodes[item.nodeID]
		if !ok {
			continue
		}

		for _, edge := range g.OutEdges(item.nodeID) {
			dst, ok := g.Nodes[edge.Dst]
			if !ok {
				continue
			}
			candidateDepth := item.depth + 1

			if edge.IsDependencyOnly() {
				// Dependency-only edges drive enqueueing but transfer
				// no data, so they never touch the write-ledger — a
				// no-op write can't win a tie-break it contributed no
				// data to (see DESIGN.md).
				queue = append(queue, frontierItem{nodeID: dst.ID, depth: candidateDepth})
				continue
			}

			for _, srcKey := range sortedMapKeys(edge.KeyMap) {
				dstKey := edge.KeyMap[srcKey]
				value, ok := n.DataOut[srcKey]
				if !ok {
					continue
				}
				key := ledgerKey{nodeID: dst.ID, port: dstKey}
				accept, outcome := acceptWrite(ledger, key, candidateDepth, n.ID)
				if onWrite != nil {
					onWrite(outcome)
				}
				if accept {
					ledger[key] = writer{depth: candidateDepth, srcID: n.ID}
					dst.SetInput(dstKey, value)
				}
			}
			queue = append(queue, frontierItem{nodeID: dst.ID, depth: candidateDepth})
		}
	}
}

// acceptWrite implements the write-ledger tie-break: a write at depth
// d+1 is compared against the prior writer's own recorded depth (also a
// write-depth, not a walking BFS depth) so that a shallower write always
// wins and same-depth writers break ties lexicographically by node id.
// See DESIGN.md for the full reasoning. The returned outcome names which
// branch fired, for instrumentation.
func acceptWrite(ledger map[ledgerKey]writer, key ledgerKey, candidateDepth int, srcID string) (bool, string) {
	prior, exists := ledger[key]
	switch {
	case !exists:
		return true, "accept_first"
	case prior.depth > candidateDepth:
		return true, "accept_shallower" // a shallower writer wins
	case prior.depth == candidateDepth:
		if srcID < prior.srcID {
			return true, "accept_tiebreak" // lexicographic tie-break
		}
		return false, "reject"
	default:
		return false, "reject" // existing writer is strictly shallower
	}
}

func sortedKeys(m map[string]graph.PortMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
