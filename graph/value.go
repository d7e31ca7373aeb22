// Package graph provides the in-memory data-flow graph model: nodes with
// typed input/output ports, edges wiring one node's output to another's
// input, the subgraph projector, and the structural validator.
package graph

import "fmt"

// Value is a typed port value: a literal paired with a short symbolic
// type tag ("int", "str", ...). Type equality is tag equality — there is
// no coercion between tags, even when the underlying literals could be
// parsed compatibly.
type Value struct {
	Literal string `json:"literal"`
	Type    string `json:"type"`
}

// SameType reports whether v and other carry the same type tag.
func (v Value) SameType(other Value) bool {
	return v.Type == other.Type
}

// String renders the value as "literal,type", matching the informal
// notation used throughout the scenarios this engine is tested against.
func (v Value) String() string {
	return fmt.Sprintf("%s,%s", v.Literal, v.Type)
}

// PortMap is a snapshot of a node's input or output ports.
type PortMap map[string]Value

// Clone returns a deep copy of the port map.
func (m PortMap) Clone() PortMap {
	if m == nil {
		return nil
	}
	out := make(PortMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
