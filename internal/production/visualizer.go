// Package production provides diagnostics integrations for live machine trees:
// Graphviz/JSON export and transition publishing.
package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/comalice/hfsm"
)

// Edge is a transition observed at runtime.
type Edge struct {
	Machine string `json:"machine"`
	From    string `json:"from"`
	To      string `json:"to"`
	Count   int    `json:"count"`
}

// Node is the exported view of one state.
type Node struct {
	ID        string         `json:"id"`
	Path      string         `json:"path"`
	Active    bool           `json:"active"`
	Current   string         `json:"current,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Children  []Node         `json:"children,omitempty"`
}

// Visualizer renders a machine tree together with the transitions it has
// observed since Attach. Machines only expose the requests they receive at
// runtime, so edges are learned, not declared.
type Visualizer[ID comparable] struct {
	mu    sync.Mutex
	edges map[Edge]int
	order []Edge
}

// NewVisualizer creates a Visualizer with no observed edges.
func NewVisualizer[ID comparable]() *Visualizer[ID] {
	return &Visualizer[ID]{edges: make(map[Edge]int)}
}

// Attach subscribes to root and every nested machine below it. Edges are
// keyed by the machine's path from root, the same path Snapshot uses.
func (v *Visualizer[ID]) Attach(root *hfsm.Machine[ID]) {
	walk(root, root.Name(), func(m *hfsm.Machine[ID], path string) {
		m.OnTransition(func(prev, next ID) {
			v.observe(path, fmt.Sprint(prev), fmt.Sprint(next))
		})
	})
}

func (v *Visualizer[ID]) observe(machine, from, to string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := Edge{Machine: machine, From: from, To: to}
	if _, ok := v.edges[key]; !ok {
		v.order = append(v.order, key)
	}
	v.edges[key]++
}

// Edges returns the observed edges in first-seen order.
func (v *Visualizer[ID]) Edges() []Edge {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Edge, len(v.order))
	for i, key := range v.order {
		e := key
		e.Count = v.edges[key]
		out[i] = e
	}
	return out
}

// Snapshot returns the tree rooted at root with active states marked.
// It must run on the goroutine that drives root.
func Snapshot[ID comparable](root *hfsm.Machine[ID]) Node {
	return snapshotMachine(root, root.Name(), true)
}

func snapshotMachine[ID comparable](m *hfsm.Machine[ID], path string, active bool) Node {
	n := Node{
		ID:      fmt.Sprint(m.ID()),
		Path:    path,
		Active:  active,
		Current: fmt.Sprint(m.Current()),
	}
	if m.Variables().Len() > 0 {
		n.Variables = m.Variables().Snapshot()
	}
	for _, id := range m.States() {
		s, _ := m.State(id)
		childPath := path + "/" + fmt.Sprint(id)
		childActive := active && id == m.Current()
		var child Node
		if nested, ok := s.(*hfsm.Machine[ID]); ok {
			child = snapshotMachine(nested, childPath, childActive)
		} else {
			child = Node{ID: fmt.Sprint(id), Path: childPath, Active: childActive}
		}
		n.Children = append(n.Children, child)
	}
	return n
}

// ExportJSON serializes the snapshot of root to JSON.
func (v *Visualizer[ID]) ExportJSON(root *hfsm.Machine[ID]) ([]byte, error) {
	return json.MarshalIndent(struct {
		Tree  Node   `json:"tree"`
		Edges []Edge `json:"edges"`
	}{Snapshot(root), v.Edges()}, "", "  ")
}

// ExportDOT generates Graphviz DOT source for the tree rooted at root.
// Nested machines become clusters, active states are filled and observed
// transitions are drawn with their counts.
func (v *Visualizer[ID]) ExportDOT(root *hfsm.Machine[ID]) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph HFSM {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	tree := Snapshot(root)
	renderNode(&buf, tree, "  ")

	edges := v.Edges()
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Machine < edges[j].Machine })
	for _, e := range edges {
		buf.WriteString(fmt.Sprintf("  %q -> %q [label=\"%d\"];\n", e.Machine+"/"+e.From, e.Machine+"/"+e.To, e.Count))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// renderNode recursively renders states and subgraphs.
func renderNode(buf *bytes.Buffer, n Node, indent string) {
	if len(n.Children) == 0 {
		style := ""
		if n.Active {
			style = ` style="rounded,filled" fillcolor=lightgreen`
		}
		buf.WriteString(fmt.Sprintf("%s%q [label=%q%s];\n", indent, n.Path, n.ID, style))
		return
	}

	buf.WriteString(fmt.Sprintf("%ssubgraph %q {\n", indent, "cluster_"+n.Path))
	label := n.ID
	if len(n.Variables) > 0 {
		keys := make([]string, 0, len(n.Variables))
		for k := range n.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			label += fmt.Sprintf("\\n%s=%v", k, n.Variables[k])
		}
	}
	buf.WriteString(fmt.Sprintf("%s  label=%q;\n", indent, label))
	if n.Active {
		buf.WriteString(indent + "  style=filled; fillcolor=orange;\n")
	}
	for _, child := range n.Children {
		renderNode(buf, child, indent+"  ")
	}
	buf.WriteString(indent + "}\n")
}

// walk calls fn for m and every nested machine below it, parents first.
func walk[ID comparable](m *hfsm.Machine[ID], path string, fn func(*hfsm.Machine[ID], string)) {
	fn(m, path)
	for _, id := range m.States() {
		s, _ := m.State(id)
		if nested, ok := s.(*hfsm.Machine[ID]); ok {
			walk(nested, path+"/"+fmt.Sprint(id), fn)
		}
	}
}
