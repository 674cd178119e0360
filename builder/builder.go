// Package builder constructs hfsm machine trees from declarative layouts.
//
// A layout is a tree of nodes. Nodes with children become nested machines;
// nodes without children are leaves built by the factory registered for their
// kind. Layouts are usually read from YAML; with the kinds registered by
// examples/creature:
//
//	id: creature
//	children:
//	  - id: idle
//	    children:
//	      - {id: rest, kind: timed, params: {dwell: 2s, next: eat}}
//	      - {id: eat, kind: timed, params: {dwell: 1s, next: rest}}
//	  - id: move
//	    kind: timed
//	    params: {dwell: 3s, next: idle}
//
// The first child of a machine is its start state unless start is set.
package builder

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/comalice/hfsm"
)

// ErrInvalidLayout wraps every layout validation failure.
var ErrInvalidLayout = errors.New("invalid layout")

// Node is one state of a layout.
type Node struct {
	ID       string       `yaml:"id"`
	Kind     string       `yaml:"kind,omitempty"`
	Start    string       `yaml:"start,omitempty"`
	Params   Params       `yaml:"params,omitempty"`
	Actions  []ActionSpec `yaml:"actions,omitempty"`
	Children []Node       `yaml:"children,omitempty"`
}

// ActionSpec is one action of a layout node.
type ActionSpec struct {
	Kind   string `yaml:"kind"`
	Params Params `yaml:"params,omitempty"`
}

// IsMachine reports whether the node becomes a nested machine.
func (n Node) IsMachine() bool { return len(n.Children) > 0 }

// Validate validates the layout rooted at n:
// - Every node has an ID
// - Leaves have a kind and machines do not
// - Child IDs are unique within their machine
// - A start state, if set, names a child
func (n Node) Validate() error {
	return n.validate(n.ID)
}

func (n Node) validate(path string) error {
	if n.ID == "" {
		return fmt.Errorf("%w: %s: node without id", ErrInvalidLayout, path)
	}
	if !n.IsMachine() {
		if n.Kind == "" {
			return fmt.Errorf("%w: %s: leaf without kind", ErrInvalidLayout, path)
		}
		return nil
	}
	if n.Kind != "" {
		return fmt.Errorf("%w: %s: machine with kind %q", ErrInvalidLayout, path, n.Kind)
	}

	seen := make(map[string]bool, len(n.Children))
	for _, c := range n.Children {
		if seen[c.ID] {
			return fmt.Errorf("%w: %s: duplicate child %q", ErrInvalidLayout, path, c.ID)
		}
		seen[c.ID] = true
		if err := c.validate(path + "/" + c.ID); err != nil {
			return err
		}
	}
	if n.Start != "" && !seen[n.Start] {
		return fmt.Errorf("%w: %s: start %q is not a child", ErrInvalidLayout, path, n.Start)
	}
	return nil
}

// Parse decodes and validates a YAML layout.
func Parse(data []byte) (Node, error) {
	var root Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Node{}, fmt.Errorf("parse layout: %w", err)
	}
	if err := root.Validate(); err != nil {
		return Node{}, err
	}
	return root, nil
}

// Load reads and parses a layout file.
func Load(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Node{}, fmt.Errorf("read layout: %w", err)
	}
	return Parse(data)
}

// Build constructs the machine tree for root bottom-up. opts apply to every
// machine; each machine is named by its slash-separated path. The returned
// root is not initialized.
func Build(root Node, reg *Registry, opts ...hfsm.Option) (*hfsm.Machine[string], error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}
	if !root.IsMachine() {
		return nil, fmt.Errorf("%w: root %q has no children", ErrInvalidLayout, root.ID)
	}
	b := &treeBuilder{reg: reg, opts: opts}
	return b.machine(root, root.ID)
}

// actionable is the AddAction method shared by leaves and machines.
type actionable interface {
	AddAction(actions ...hfsm.Action[string]) error
}

type treeBuilder struct {
	reg  *Registry
	opts []hfsm.Option
}

func (b *treeBuilder) machine(n Node, path string) (*hfsm.Machine[string], error) {
	opts := append(append([]hfsm.Option(nil), b.opts...), hfsm.WithName(path))
	m := hfsm.NewMachine(n.ID, opts...)
	if n.Start != "" {
		m.SetStartState(n.Start)
	}
	if err := b.actions(m, n, path); err != nil {
		return nil, err
	}

	for _, c := range n.Children {
		child, err := b.node(c, path+"/"+c.ID)
		if err != nil {
			return nil, err
		}
		if err := m.AddState(child); err != nil {
			return nil, fmt.Errorf("build %s: %w", path, err)
		}
	}
	return m, nil
}

func (b *treeBuilder) node(n Node, path string) (hfsm.State[string], error) {
	if n.IsMachine() {
		return b.machine(n, path)
	}
	f, err := b.reg.state(n.Kind)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", path, err)
	}
	s, err := f(n.ID, n.Params)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", path, err)
	}
	if s == nil || s.ID() != n.ID {
		return nil, fmt.Errorf("%w: %s: factory %q returned a state with a different id", ErrInvalidLayout, path, n.Kind)
	}
	if err := b.actions(s, n, path); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *treeBuilder) actions(target any, n Node, path string) error {
	if len(n.Actions) == 0 {
		return nil
	}
	a, ok := target.(actionable)
	if !ok {
		return fmt.Errorf("%w: %s: state does not accept actions", ErrInvalidLayout, path)
	}
	for i, spec := range n.Actions {
		f, err := b.reg.action(spec.Kind)
		if err != nil {
			return fmt.Errorf("build %s action %d: %w", path, i, err)
		}
		action, err := f(spec.Params)
		if err != nil {
			return fmt.Errorf("build %s action %d: %w", path, i, err)
		}
		if err := a.AddAction(action); err != nil {
			return fmt.Errorf("build %s action %d: %w", path, i, err)
		}
	}
	return nil
}
