package graph

// Edge is a typed wire carrying values from one node's output ports to
// another node's input ports.
//
// An edge with an empty KeyMap is a pure dependency edge: it exists for
// ordering only (it drives BFS enqueueing in the propagator) and carries
// no data.
//
// Edge is parity-consistent within a Graph iff its ID appears in
// exactly src.PathsOut and dst.PathsIn, and no other node's lists.
type Edge struct {
	ID string `json:"id"`

	Src string `json:"src"`
	Dst string `json:"dst"`

	// KeyMap maps source output-port name to destination input-port name.
	KeyMap map[string]string `json:"key_map"`
}

// NewEdge constructs an edge between src and dst with the given key map.
// A nil keyMap is normalized to an empty, non-nil map (a dependency-only
// edge).
func NewEdge(id, src, dst string, keyMap map[string]string) *Edge {
	if keyMap == nil {
		keyMap = map[string]string{}
	}
	return &Edge{ID: id, Src: src, Dst: dst, KeyMap: keyMap}
}

// IsDependencyOnly reports whether the edge carries no data, i.e. exists
// purely to order execution between Src and Dst.
func (e *Edge) IsDependencyOnly() bool {
	return len(e.KeyMap) == 0
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	km := make(map[string]string, len(e.KeyMap))
	for k, v := range e.KeyMap {
		km[k] = v
	}
	return &Edge{ID: e.ID, Src: e.Src, Dst: e.Dst, KeyMap: km}
}
