package graph

import "sort"

// RunConfig is a client-submitted run configuration: the subset of
// nodes to enable, initial inputs for root nodes, and per-node input
// overrides.
type RunConfig struct {
	// RootInputs identifies roots and seeds their inputs: node id ->
	// (port -> value).
	RootInputs map[string]PortMap `json:"root_inputs"`

	// DataOverwrites overrides specific input ports after the subgraph
	// is projected: node id -> (port -> value). Applied only to
	// projected nodes.
	DataOverwrites map[string]PortMap `json:"data_overwrites"`

	// EnableList and DisableList control subgraph projection.
	EnableList  []string `json:"enable_list"`
	DisableList []string `json:"disable_list"`
}

// RootIDs returns the sorted node ids identified by RootInputs.
func (c RunConfig) RootIDs() []string {
	ids := make([]string, 0, len(c.RootInputs))
	for id := range c.RootInputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
