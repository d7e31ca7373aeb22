// Package api is the transport-agnostic external interface surface
//: request/response DTOs, their validation, and the Service
// that wires them to the engine and registry packages. It carries no
// HTTP or RPC framing of its own — cmd/dagflowd is responsible for
// that.
package api

import "github.com/kiswi/dagflow/graph"

// NodeData is the request shape for add_node / update_node.
// On update_node, any nil map is left untouched on the stored node
// rather than cleared — this is what "partial NodeData" means.
type NodeData struct {
	ID      string            `json:"id" validate:"required"`
	DataIn  graph.PortMap     `json:"data_in,omitempty"`
	DataOut graph.PortMap     `json:"data_out,omitempty"`
	Mapping map[string]string `json:"mapping,omitempty" validate:"omitempty,dive,required"`
}

func (d NodeData) toNode() *graph.Node {
	n := graph.NewNode(d.ID)
	if d.DataIn != nil {
		n.DataIn = d.DataIn.Clone()
	}
	if d.DataOut != nil {
		n.DataOut = d.DataOut.Clone()
	}
	if d.Mapping != nil {
		mapping := make(map[string]string, len(d.Mapping))
		for k, v := range d.Mapping {
			mapping[k] = v
		}
		n.Mapping = mapping
	}
	return n
}

// patch returns a *graph.Node carrying only the fields NodeData set,
// suitable for registry.GraphStore.UpdateNode's partial-merge contract.
func (d NodeData) patch() *graph.Node {
	return &graph.Node{DataIn: d.DataIn, DataOut: d.DataOut, Mapping: d.Mapping}
}

// EdgeData is the request shape for add_edge.
type EdgeData struct {
	ID     string            `json:"id" validate:"required"`
	Src    string            `json:"src" validate:"required"`
	Dst    string            `json:"dst" validate:"required"`
	KeyMap map[string]string `json:"key_map,omitempty"`
}

func (d EdgeData) toEdge() *graph.Edge {
	return graph.NewEdge(d.ID, d.Src, d.Dst, d.KeyMap)
}

// RunConfigRequest is the request shape for fetch_graph, run_config, and
// fetch_islands — all three take a RunConfig.
type RunConfigRequest struct {
	RootInputs     map[string]graph.PortMap `json:"root_inputs,omitempty"`
	DataOverwrites map[string]graph.PortMap `json:"data_overwrites,omitempty"`
	EnableList     []string                 `json:"enable_list,omitempty"`
	DisableList    []string                 `json:"disable_list,omitempty"`
}

func (r RunConfigRequest) toRunConfig() graph.RunConfig {
	return graph.RunConfig{
		RootInputs:     r.RootInputs,
		DataOverwrites: r.DataOverwrites,
		EnableList:     r.EnableList,
		DisableList:    r.DisableList,
	}
}

// RunRecordSummary is the run_config response shape: the committed
// record's identifying fields, without the full resolved-node payload
// (callers fetch that separately via get_graph / node_value).
type RunRecordSummary struct {
	RunID      string     `json:"run_id"`
	TopoOrder  []string   `json:"topo_order"`
	LevelOrder [][]string `json:"level_order"`
}
