// Package hfsm is a hierarchical finite-state-machine engine for per-tick
// behavior logic.
//
// A Machine owns a registry of states. A state is either a host behavior that
// embeds Leaf or another Machine, so machines nest to any depth. The host
// calls Initialize once on the root and Update(dt) once per tick; the root
// delegates to its current child, recursively.
//
// # Transitions
//
// States request transitions with ChangeState. Requests are buffered and
// applied by the resolver after the Enter or Update call that made them
// returns. One hop exits the current state, enters the requested one and
// notifies OnTransition subscribers. If the entered state requests another
// transition from its Enter, the resolver hops again, until the machine
// settles or DefaultMaxHops (see WithMaxHops) is exceeded, in which case the
// machine reports ErrTransitionLoop and stops.
//
// # Shared variables
//
// States and actions declare Field slots by implementing FieldDeclarer. When
// a node is added, its fields are bound to cells in the owning machine's
// Variables. Two fields with the same key and value type under one machine
// share a cell:
//
//	type Eat struct {
//		hfsm.Leaf[string]
//		hunger *hfsm.Field[int]
//	}
//
//	func (e *Eat) Fields() []hfsm.FieldSlot { return []hfsm.FieldSlot{e.hunger} }
//
// # Initialization
//
// AddState runs phase one (binding and Initialize) on each child as it is
// added. The root's Initialize then runs phase two (CompleteInitialize) over
// the whole tree, top-down, before entering the start state. Read variables
// written by siblings in CompleteInitialize, never in Initialize.
//
// # Example
//
//	root := hfsm.NewMachine("root", hfsm.WithLogger(logger))
//	idle := hfsm.NewMachine("idle")
//	_ = idle.AddState(&Rest{Leaf: hfsm.NewLeaf("rest")}, &Eat{Leaf: hfsm.NewLeaf("eat")})
//	_ = root.AddState(idle, &Move{Leaf: hfsm.NewLeaf("move")})
//	if err := root.Initialize(); err != nil {
//		return err
//	}
//	for range ticker.C {
//		if err := root.Update(16 * time.Millisecond); hfsm.IsFatal(err) {
//			return err
//		}
//	}
package hfsm
