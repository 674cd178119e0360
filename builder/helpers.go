package builder

// Leaf creates a leaf node built by the factory registered for kind.
func Leaf(id, kind string, opts ...Option) Node {
	n := Node{ID: id, Kind: kind}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

// Composite creates a machine node with children in order (first = start)
func Composite(id string, children ...Node) Node {
	n := Node{ID: id, Children: children}
	if len(children) > 0 {
		n.Start = children[0].ID
	}
	return n
}

// StartAt returns a copy of a composite node that starts in id.
func (n Node) StartAt(id string) Node {
	n.Start = id
	return n
}

// Option pattern for configuring leaf nodes
type Option func(*Node)

// WithParams sets the parameters passed to the leaf factory.
func WithParams(p Params) Option {
	return func(n *Node) { n.Params = p }
}

// WithAction attaches an action built by the action factory registered for kind.
func WithAction(kind string, params Params) Option {
	return func(n *Node) {
		n.Actions = append(n.Actions, ActionSpec{Kind: kind, Params: params})
	}
}
