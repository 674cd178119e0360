package hfsm

import (
	"fmt"
	"time"
)

// State is the lifecycle contract of every node owned by a Machine.
//
// The set of implementations is closed: host behaviors embed Leaf, and
// composite nodes are *Machine. Only the owning machine calls the lifecycle
// methods of a child.
type State[ID comparable] interface {
	ID() ID
	// Initialize runs once, when the state is added to a machine.
	Initialize() error
	// CompleteInitialize runs once, after the whole tree finished Initialize.
	CompleteInitialize() error
	Enter() error
	Update(dt time.Duration) error
	Exit() error

	base() *node[ID]
}

// node is the bookkeeping shared by leaves and machines.
type node[ID comparable] struct {
	owner       *Machine[ID]
	actions     []Action[ID]
	initialized bool
	completed   bool
}

func (n *node[ID]) base() *node[ID] { return n }

// AddAction attaches actions in order. Actions must be attached before the
// node is added to a machine.
func (n *node[ID]) AddAction(actions ...Action[ID]) error {
	if n.initialized {
		return fmt.Errorf("add action: %w", ErrAlreadyInitialized)
	}
	for i, a := range actions {
		if a == nil {
			return fmt.Errorf("add action %d: %w", i, ErrNilState)
		}
	}
	n.actions = append(n.actions, actions...)
	return nil
}

// Actions returns the attached actions in attachment order.
func (n *node[ID]) Actions() []Action[ID] {
	out := make([]Action[ID], len(n.actions))
	copy(out, n.actions)
	return out
}

// Leaf is embedded by host behaviors. It supplies the identifier, the owner
// back-reference and no-op lifecycle hooks to override.
//
//	type Rest struct {
//		hfsm.Leaf[string]
//	}
//
//	func (r *Rest) Update(dt time.Duration) error {
//		r.ChangeState("eat")
//		return nil
//	}
type Leaf[ID comparable] struct {
	node[ID]
	id ID
}

// NewLeaf returns a Leaf for id, ready to be embedded.
func NewLeaf[ID comparable](id ID) Leaf[ID] {
	return Leaf[ID]{id: id}
}

// ID returns the state identifier.
func (l *Leaf[ID]) ID() ID { return l.id }

// Machine returns the owning machine, or nil before the leaf is added.
func (l *Leaf[ID]) Machine() *Machine[ID] { return l.owner }

// ChangeState requests a transition on the owning machine.
func (l *Leaf[ID]) ChangeState(id ID) error {
	if l.owner == nil {
		return fmt.Errorf("change state to %v: %w", id, ErrNilOwner)
	}
	l.owner.ChangeState(id)
	return nil
}

func (l *Leaf[ID]) Initialize() error { return nil }
func (l *Leaf[ID]) CompleteInitialize() error { return nil }
func (l *Leaf[ID]) Enter() error { return nil }
func (l *Leaf[ID]) Update(dt time.Duration) error { return nil }
func (l *Leaf[ID]) Exit() error { return nil }
