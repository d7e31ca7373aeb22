package engine

import (
	"sort"

	"github.com/kiswi/dagflow/graph"
)

// Traversals bundles the derived views computed on a resolved subgraph.
type Traversals struct {
	TopoOrder  []string
	LevelOrder [][]string
	Leaves     []string
	Islands    [][]string
}

// Derive computes every traversal on g in one pass. g is assumed
// already projected, validated, and propagated.
func Derive(g *graph.Graph, cfg graph.RunConfig) Traversals {
	return Traversals{
		TopoOrder:  TopoOrder(g),
		LevelOrder: LevelOrder(g),
		Leaves:     Leaves(g, cfg),
		Islands:    Islands(g),
	}
}

// TopoOrder returns a topological order of g: reverse post-order from a
// depth-first walk over outgoing edges, starting from each unvisited
// node in deterministic (sorted) order.
func TopoOrder(g *graph.Graph) []string {
	visited := make(map[string]bool, len(g.Nodes))
	var order []string

	var dfs func(id string)
	dfs = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, e := range g.OutEdges(id) {
			dfs(e.Dst)
		}
		order = append(order, id)
	}

	for _, id := range g.NodeIDs() {
		dfs(id)
	}

	reverse(order)
	return order
}

// LevelOrder computes the Kahn-style level order of g: in-degree counts
// only edges whose endpoints both survive in g, and each level drains
// the current zero-in-degree frontier.
func LevelOrder(g *graph.Graph) [][]string {
	inDegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		inDegree[id] = 0
	}
	for _, e := range g.Edges {
		if _, srcOK := g.Nodes[e.Src]; !srcOK {
			continue
		}
		if _, dstOK := g.Nodes[e.Dst]; !dstOK {
			continue
		}
		inDegree[e.Dst]++
	}

	var frontier []string
	for _, id := range g.NodeIDs() {
		if inDegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	var levels [][]string
	for len(frontier) > 0 {
		levels = append(levels, frontier)
		var next []string
		for _, id := range frontier {
			for _, e := range g.OutEdges(id) {
				if _, ok := g.Nodes[e.Dst]; !ok {
					continue
				}
				inDegree[e.Dst]--
				if inDegree[e.Dst] == 0 {
					next = append(next, e.Dst)
				}
			}
		}
		sort.Strings(next)
		frontier = next
	}
	return levels
}

// Leaves returns the nodes reachable from any declared root whose
// PathsOut is empty in g.
func Leaves(g *graph.Graph, cfg graph.RunConfig) []string {
	reachable := reachableFromRoots(g, cfg)

	var leaves []string
	for _, id := range g.NodeIDs() {
		if reachable[id] && len(g.Nodes[id].PathsOut) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

func reachableFromRoots(g *graph.Graph, cfg graph.RunConfig) map[string]bool {
	reachable := make(map[string]bool)
	var dfs func(id string)
	dfs = func(id string) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		for _, e := range g.OutEdges(id) {
			dfs(e.Dst)
		}
	}
	for _, rootID := range cfg.RootIDs() {
		if _, ok := g.Nodes[rootID]; ok {
			dfs(rootID)
		}
	}
	return reachable
}

// Islands returns the connected components of g under an undirected
// walk (both PathsIn and PathsOut). The sum of component sizes equals
// the projected node count and components are pairwise disjoint. A
// graph with more than one component is reported, not rejected.
func Islands(g *graph.Graph) [][]string {
	visited := make(map[string]bool, len(g.Nodes))
	var islands [][]string

	var dfs func(id string, component *[]string)
	dfs = func(id string, component *[]string) {
		if visited[id] {
			return
		}
		visited[id] = true
		*component = append(*component, id)
		for _, e := range g.OutEdges(id) {
			dfs(e.Dst, component)
		}
		for _, e := range g.InEdges(id) {
			dfs(e.Src, component)
		}
	}

	for _, id := range g.NodeIDs() {
		if visited[id] {
			continue
		}
		var component []string
		dfs(id, &component)
		sort.Strings(component)
		islands = append(islands, component)
	}
	return islands
}

func reverse(ids []string) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}
