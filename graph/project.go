package graph

// Project computes the induced subgraph of g under cfg's enable/disable
// sets:
//
//   - If EnableList is non-empty, only nodes named in EnableList are
//     kept.
//   - If DisableList is non-empty, nodes named in DisableList are
//     removed, including nodes also named in EnableList.
//   - If both lists are empty, every node is kept.
//
// An edge is retained iff both endpoints are retained. Project returns
// a clone: mutations the propagator makes during a run are never
// visible on g.
func Project(g *Graph, cfg RunConfig) *Graph {
	clone := g.Clone()

	keep := projectedNodeSet(clone, cfg)

	for id := range clone.Nodes {
		if !keep[id] {
			delete(clone.Nodes, id)
		}
	}
	for id, e := range clone.Edges {
		if !keep[e.Src] || !keep[e.Dst] {
			delete(clone.Edges, id)
			continue
		}
	}
	// Re-derive each surviving node's path lists against the surviving
	// edge set; Clone copied the pre-projection lists verbatim.
	for _, n := range clone.Nodes {
		n.PathsIn = filterEdgeIDs(n.PathsIn, clone.Edges)
		n.PathsOut = filterEdgeIDs(n.PathsOut, clone.Edges)
	}
	return clone
}

func projectedNodeSet(g *Graph, cfg RunConfig) map[string]bool {
	// EnableList and DisableList combine (AND), not "else if": when both
	// are non-empty a node survives only if it is named in EnableList
	// and not named in DisableList. This is what makes EnableList ==
	// DisableList collapse to the empty subgraph,
	// and it matches original_source/services/graph_services.py, which
	// applies both filters in sequence rather than picking one.
	keep := make(map[string]bool, len(g.Nodes))
	for id := range g.Nodes {
		keep[id] = true
	}
	if len(cfg.EnableList) > 0 {
		enabled := toSet(cfg.EnableList)
		for id := range keep {
			if !enabled[id] {
				delete(keep, id)
			}
		}
	}
	if len(cfg.DisableList) > 0 {
		disabled := toSet(cfg.DisableList)
		for id := range disabled {
			delete(keep, id)
		}
	}
	return keep
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func filterEdgeIDs(ids []string, edges map[string]*Edge) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := edges[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
