// Tests for Visualizer DOT/JSON export and edge recording.
package production

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/testutil"
)

// newTree builds root{inner{x, y}, b} and returns both machines, initialized.
func newTree(t *testing.T) (*hfsm.Machine[string], *hfsm.Machine[string]) {
	t.Helper()
	j := &testutil.Journal{}
	inner := hfsm.NewMachine("inner")
	if err := inner.AddState(testutil.NewState("x", j), testutil.NewState("y", j)); err != nil {
		t.Fatalf("add inner states: %v", err)
	}
	root := hfsm.NewMachine("root")
	if err := root.AddState(inner, testutil.NewState("b", j)); err != nil {
		t.Fatalf("add root states: %v", err)
	}
	if err := root.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return root, inner
}

func TestVisualizer_ExportDOT(t *testing.T) {
	root, inner := newTree(t)
	v := NewVisualizer[string]()
	v.Attach(root)

	inner.ChangeState("y")
	if err := root.Update(time.Millisecond); err != nil {
		t.Fatalf("update: %v", err)
	}

	dot := v.ExportDOT(root)
	if !strings.Contains(dot, `digraph HFSM {`) {
		t.Error("Missing DOT header")
	}
	if !strings.Contains(dot, `subgraph "cluster_root/inner"`) {
		t.Error("Missing nested machine cluster")
	}
	if !strings.Contains(dot, `"root/inner/y" [label="y" style="rounded,filled" fillcolor=lightgreen];`) {
		t.Errorf("Missing active leaf highlight:\n%s", dot)
	}
	if !strings.Contains(dot, `"root/b" [label="b"];`) {
		t.Error("Missing inactive leaf")
	}
	if !strings.Contains(dot, `"root/inner/x" -> "root/inner/y" [label="1"];`) {
		t.Errorf("Missing observed edge:\n%s", dot)
	}
}

func TestVisualizer_EdgesCount(t *testing.T) {
	root, _ := newTree(t)
	v := NewVisualizer[string]()
	v.Attach(root)

	for _, target := range []string{"b", "inner", "b"} {
		root.ChangeState(target)
		if err := root.Update(time.Millisecond); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	edges := v.Edges()
	if len(edges) != 2 {
		t.Fatalf("expected 2 distinct edges, got %v", edges)
	}
	if edges[0] != (Edge{Machine: "root", From: "inner", To: "b", Count: 2}) {
		t.Errorf("unexpected first edge %+v", edges[0])
	}
	if edges[1] != (Edge{Machine: "root", From: "b", To: "inner", Count: 1}) {
		t.Errorf("unexpected second edge %+v", edges[1])
	}
}

func TestVisualizer_ExportJSON(t *testing.T) {
	root, _ := newTree(t)
	hfsm.Resolve[int](root.Variables(), "hp").Set(7)
	v := NewVisualizer[string]()

	data, err := v.ExportJSON(root)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var out struct {
		Tree  Node   `json:"tree"`
		Edges []Edge `json:"edges"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Tree.Current != "inner" || !out.Tree.Active {
		t.Errorf("unexpected root node %+v", out.Tree)
	}
	if got := out.Tree.Variables["hp(int)"]; got != float64(7) {
		t.Errorf("expected hp(int)=7, got %v", got)
	}
	if len(out.Tree.Children) != 2 || out.Tree.Children[0].Current != "x" {
		t.Errorf("unexpected children %+v", out.Tree.Children)
	}
	if len(out.Edges) != 0 {
		t.Errorf("expected no edges, got %v", out.Edges)
	}
}
