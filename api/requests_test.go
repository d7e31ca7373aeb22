package api

import (
	"testing"

	"github.com/kiswi/dagflow/graph"
)

func TestNodeData_ToNode_CopiesFields(t *testing.T) {
	d := NodeData{
		ID:      "a",
		DataIn:  graph.PortMap{"in1": {Literal: "1", Type: "int"}},
		Mapping: map[string]string{"in1": "out1"},
	}
	n := d.toNode()
	if n.ID != "a" {
		t.Errorf("ID = %q, want a", n.ID)
	}
	if n.DataIn["in1"].Literal != "1" {
		t.Errorf("DataIn not copied: %v", n.DataIn)
	}
	if n.Mapping["in1"] != "out1" {
		t.Errorf("Mapping not copied: %v", n.Mapping)
	}
}

func TestNodeData_Patch_OnlySetsProvidedFields(t *testing.T) {
	d := NodeData{Mapping: map[string]string{"in1": "out1"}}
	patch := d.patch()
	if patch.DataIn != nil {
		t.Error("expected nil DataIn on patch when not provided")
	}
	if patch.Mapping["in1"] != "out1" {
		t.Errorf("expected mapping on patch, got %v", patch.Mapping)
	}
}

func TestEdgeData_ToEdge(t *testing.T) {
	d := EdgeData{ID: "e1", Src: "a", Dst: "b", KeyMap: map[string]string{"out1": "in1"}}
	e := d.toEdge()
	if e.ID != "e1" || e.Src != "a" || e.Dst != "b" {
		t.Errorf("unexpected edge: %+v", e)
	}
	if e.KeyMap["out1"] != "in1" {
		t.Errorf("unexpected key map: %v", e.KeyMap)
	}
}

func TestRunConfigRequest_ToRunConfig(t *testing.T) {
	r := RunConfigRequest{
		RootInputs:  map[string]graph.PortMap{"a": {}},
		EnableList:  []string{"a", "b"},
		DisableList: []string{"b"},
	}
	cfg := r.toRunConfig()
	if len(cfg.RootInputs) != 1 || len(cfg.EnableList) != 2 || len(cfg.DisableList) != 1 {
		t.Errorf("unexpected conversion: %+v", cfg)
	}
}
