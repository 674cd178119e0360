package hfsm

import (
	"fmt"
	"time"
)

// Action is a secondary behavior unit attached to exactly one state. Its
// lifecycle follows the owning state: Enter and Exit after the state's hook,
// Update after the state's Update until the owning machine has a pending
// transition.
type Action[ID comparable] interface {
	Initialize() error
	CompleteInitialize() error
	Enter() error
	Update(dt time.Duration) error
	Exit() error

	binding() *BaseAction[ID]
}

// BaseAction is embedded by host actions. It supplies the back-reference to
// the owning state and no-op hooks.
type BaseAction[ID comparable] struct {
	state       State[ID]
	initialized bool
	completed   bool
}

func (a *BaseAction[ID]) binding() *BaseAction[ID] { return a }

// State returns the owning state, or nil before initialization.
func (a *BaseAction[ID]) State() State[ID] { return a.state }

// Machine returns the machine that owns the state.
func (a *BaseAction[ID]) Machine() *Machine[ID] {
	if a.state == nil {
		return nil
	}
	return a.state.base().owner
}

// ChangeState requests a transition on the machine that owns the state.
func (a *BaseAction[ID]) ChangeState(id ID) error {
	m := a.Machine()
	if m == nil {
		return fmt.Errorf("change state to %v: %w", id, ErrNilOwner)
	}
	m.ChangeState(id)
	return nil
}

func (a *BaseAction[ID]) Initialize() error { return nil }
func (a *BaseAction[ID]) CompleteInitialize() error { return nil }
func (a *BaseAction[ID]) Enter() error { return nil }
func (a *BaseAction[ID]) Update(dt time.Duration) error { return nil }
func (a *BaseAction[ID]) Exit() error { return nil }

// ActionFunc adapts a per-tick function into an Action.
type ActionFunc[ID comparable] struct {
	BaseAction[ID]
	fn func(a *ActionFunc[ID], dt time.Duration) error
}

// NewActionFunc returns an Action whose Update calls fn.
func NewActionFunc[ID comparable](fn func(a *ActionFunc[ID], dt time.Duration) error) *ActionFunc[ID] {
	return &ActionFunc[ID]{fn: fn}
}

func (a *ActionFunc[ID]) Update(dt time.Duration) error {
	if a.fn == nil {
		return nil
	}
	return a.fn(a, dt)
}
