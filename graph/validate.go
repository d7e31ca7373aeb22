package graph

type color int

const (
	unvisited color = iota
	visiting
	visited
)

// edgeDirection names an edge by its source and destination node ids.
// The parity check in validateFrom keys its seenOnPath map by a
// "src->dst" string and does not use this type.
type edgeDirection struct {
	src, dst string
}

// Validate runs a depth-first structural check over the part of the
// subgraph g reachable from the nodes named in cfg's root inputs. Each
// reached node is entered once: its incoming edges are checked and the
// walk recurses upstream into their sources (where cycles are found),
// then its outgoing edges are checked for parity. Nodes that are neither
// reachable from a declared root nor upstream of a reached node are not
// visited — they surface later as islands, not as a validation error.
//
// It performs no mutation and returns the first Diagnostic encountered,
// or nil if the reachable portion of g is well-formed.
func Validate(g *Graph, cfg RunConfig) *Diagnostic {
	colors := make(map[string]color, len(g.Nodes))
	for id := range g.Nodes {
		colors[id] = unvisited
	}
	seenOnPath := make(map[string]bool)

	// Unknown roots are skipped here; Propagate skips them too.
	reachable := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		for _, e := range g.OutEdges(id) {
			if _, ok := g.Nodes[e.Dst]; ok {
				walk(e.Dst)
			}
		}
	}
	for _, rootID := range cfg.RootIDs() {
		if _, ok := g.Nodes[rootID]; ok {
			walk(rootID)
		}
	}

	for _, id := range g.NodeIDs() {
		if reachable[id] && colors[id] == unvisited {
			if diag := validateFrom(g, id, colors, seenOnPath); diag != nil {
				return diag
			}
		}
	}
	return nil
}

func validateFrom(g *Graph, nodeID string, colors map[string]color, seenOnPath map[string]bool) *Diagnostic {
	colors[nodeID] = visiting
	dst := g.Nodes[nodeID]

	// seenSrcKeys tracks, for each incoming source node already examined
	// at this node, the (dstKey -> srcKey) pairs wired in so far —
	// duplicate-wire detection.
	seenSrcKeys := make(map[string]map[string]string)

	for _, edge := range g.InEdges(nodeID) {
		src, ok := g.Nodes[edge.Src]
		if !ok {
			return &Diagnostic{Kind: KindUnknownNode, NodeID: edge.Src, EdgeID: edge.ID, Detail: "edge source does not exist"}
		}

		for srcKey, dstKey := range edge.KeyMap {
			if _, ok := src.DataOut[srcKey]; !ok {
				return missingKey(src.ID, edge.ID, "output port "+srcKey+" does not exist on source node")
			}
			if _, ok := dst.DataIn[dstKey]; !ok {
				return missingKey(dst.ID, edge.ID, "input port "+dstKey+" does not exist on destination node")
			}
			if !src.DataOut[srcKey].SameType(dst.DataIn[dstKey]) {
				return typeMismatch(dst.ID, edge.ID, "port "+srcKey+" and "+dstKey+" disagree in type tag")
			}

			if prior, ok := seenSrcKeys[edge.Src]; ok {
				if prevSrcKey, wired := prior[dstKey]; wired && prevSrcKey == srcKey {
					return duplicateEdge(nodeID, edge.ID, "duplicate wire from "+edge.Src+" into "+dstKey)
				}
				prior[dstKey] = srcKey
			} else {
				seenSrcKeys[edge.Src] = map[string]string{dstKey: srcKey}
			}
		}

		pathKey := edge.Src + "->" + edge.Dst
		if colors[edge.Src] == unvisited {
			if diag := validateFrom(g, edge.Src, colors, seenOnPath); diag != nil {
				return diag
			}
		} else if colors[edge.Src] == visiting {
			return cycleDetected(edge.Src, "cycle detected while entering "+nodeID)
		}
		seenOnPath[pathKey] = true
	}

	for _, edge := range g.OutEdges(nodeID) {
		dst, ok := g.Nodes[edge.Dst]
		if !ok {
			return &Diagnostic{Kind: KindUnknownNode, NodeID: edge.Dst, EdgeID: edge.ID, Detail: "edge destination does not exist"}
		}
		if !containsID(dst.PathsIn, edge.ID) {
			return parityViolation(nodeID, edge.ID, "destination node does not list edge as incoming")
		}
		pathKey := nodeID + "->" + edge.Dst
		if seenOnPath[pathKey] {
			return parityViolation(nodeID, edge.ID, "edge already traversed as incoming elsewhere in this walk")
		}
	}

	colors[nodeID] = visited
	return nil
}

func containsID(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
