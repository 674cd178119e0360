package hfsm

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TransitionFunc observes one settled hop of a machine.
type TransitionFunc[ID comparable] func(prev, next ID)

// Machine is a composite state: it owns a registry of child states, tracks the
// current and requested-next child, and settles transitions with a fixed-point
// resolver. A Machine without a parent is a root and enters itself on
// Initialize; a Machine added to another Machine is a nested state.
//
// Transition requests (ChangeState) are buffered and applied only after the
// Enter or Update call that made them returns, so a child can request a
// transition from inside its own hooks.
//
// A machine tree must be driven from a single goroutine.
type Machine[ID comparable] struct {
	node[ID]
	id   ID
	name string

	states map[ID]State[ID]
	order  []ID

	start    ID
	current  ID
	next     ID
	hasStart bool

	subscribers []TransitionFunc[ID]
	vars        *Variables
	hooks       Hooks
	maxHops     int
	log         *zap.Logger
	metrics     *Metrics
	fault       error
}

// NewMachine creates an empty machine identified by id. The id matters only
// when the machine is nested in another one.
func NewMachine[ID comparable](id ID, opts ...Option) *Machine[ID] {
	s := settings{
		name:    fmt.Sprint(id),
		logger:  zap.NewNop(),
		maxHops: DefaultMaxHops,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Machine[ID]{
		id:      id,
		name:    s.name,
		states:  make(map[ID]State[ID]),
		vars:    NewVariables(),
		hooks:   s.hooks,
		maxHops: s.maxHops,
		log:     s.logger.Named(s.name),
		metrics: s.metrics,
	}
}

// AddState registers children in order. Each child is bound and initialized
// immediately. Failing children are skipped; the returned error joins every
// failure.
func (m *Machine[ID]) AddState(children ...State[ID]) error {
	var errs []error
	for _, child := range children {
		if err := m.addState(child); err != nil {
			errs = append(errs, m.report(err))
		}
	}
	return errors.Join(errs...)
}

func (m *Machine[ID]) addState(child State[ID]) error {
	if child == nil {
		return fmt.Errorf("add state: %w", ErrNilState)
	}
	id := child.ID()
	if _, exists := m.states[id]; exists {
		return fmt.Errorf("add state %v: %w", id, ErrDuplicateStateID)
	}
	if n := child.base(); n.initialized || n.owner != nil {
		return fmt.Errorf("add state %v: %w", id, ErrAlreadyInitialized)
	}
	if err := m.initializeNode(child); err != nil {
		if !child.base().initialized {
			return fmt.Errorf("initialize state %v: %w", id, err)
		}
		// The state itself is usable; only some of its actions failed.
		m.report(fmt.Errorf("initialize actions of %v: %w", id, err))
	}

	m.states[id] = child
	m.order = append(m.order, id)
	if !m.hasStart {
		m.SetStartState(id)
	}
	if m.completed {
		if err := completeNode(child); err != nil {
			m.report(fmt.Errorf("complete state %v: %w", id, err))
		}
	}
	m.log.Debug("state added", zap.Any("state", id), zap.Int("states", len(m.states)))
	return nil
}

// SetStartState sets the start, current and requested-next state to id.
func (m *Machine[ID]) SetStartState(id ID) {
	m.start = id
	m.current = id
	m.next = id
	m.hasStart = true
}

// ChangeState requests a transition to id. The request is applied by the
// resolver once the running Enter or Update returns; the last request wins.
func (m *Machine[ID]) ChangeState(id ID) {
	m.next = id
}

// OnTransition registers fn to be called once per hop, in registration order.
func (m *Machine[ID]) OnTransition(fn TransitionFunc[ID]) {
	if fn != nil {
		m.subscribers = append(m.subscribers, fn)
	}
}

// Initialize prepares the machine. A root machine first completes
// initialization of the whole tree and enters its start state; every machine
// then runs its OnInitialize hook and is marked initialized.
func (m *Machine[ID]) Initialize() error {
	if m.initialized {
		return m.report(fmt.Errorf("initialize %s: %w", m.name, ErrAlreadyInitialized))
	}
	if len(m.states) == 0 {
		return m.report(fmt.Errorf("initialize %s: no states: %w", m.name, ErrUnknownStateID))
	}

	var errs []error
	if m.IsRoot() {
		if err := m.CompleteInitialize(); err != nil {
			errs = append(errs, err)
		}
		if err := m.Enter(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.hooks.initialize(); err != nil {
		errs = append(errs, m.report(fmt.Errorf("initialize %s: %w", m.name, err)))
		return errors.Join(errs...)
	}
	m.initialized = true
	return errors.Join(errs...)
}

// CompleteInitialize runs phase two top-down: the machine's hook, then every
// registered state in insertion order, then the actions of that state.
func (m *Machine[ID]) CompleteInitialize() error {
	if m.completed {
		return nil
	}
	m.completed = true

	var errs []error
	if err := m.hooks.completeInitialize(); err != nil {
		errs = append(errs, m.report(fmt.Errorf("complete %s: %w", m.name, err)))
	}
	for _, id := range m.order {
		child := m.states[id]
		if err := completeNode(child); err != nil {
			if _, nested := child.(*Machine[ID]); !nested {
				err = m.report(fmt.Errorf("complete state %v: %w", id, err))
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Enter restarts the machine at its start state and settles any transition
// requested while entering.
func (m *Machine[ID]) Enter() error {
	if m.fault != nil {
		return m.fault
	}
	m.current = m.start
	m.next = m.start

	var errs []error
	if child, err := m.lookup("enter", m.current); err != nil {
		errs = append(errs, err)
	} else if err := m.enterChild(child); err != nil {
		if m.fail(err) {
			return m.fault
		}
		errs = append(errs, err)
	}
	if err := m.hooks.enter(); err != nil {
		errs = append(errs, m.report(fmt.Errorf("enter %s: %w", m.name, err)))
	}
	if err := m.resolve(); err != nil {
		if IsFatal(err) {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Update delegates dt to the current state, runs the OnUpdate hook and
// settles pending transitions.
func (m *Machine[ID]) Update(dt time.Duration) error {
	if !m.initialized {
		return m.report(fmt.Errorf("update %s: %w", m.name, ErrNotInitialized))
	}
	if m.fault != nil {
		return m.fault
	}

	var errs []error
	if child, err := m.lookup("update", m.current); err != nil {
		errs = append(errs, err)
	} else if err := m.updateChild(child, dt); err != nil {
		if m.fail(err) {
			return m.fault
		}
		errs = append(errs, err)
	}
	if err := m.hooks.update(dt); err != nil {
		errs = append(errs, m.report(fmt.Errorf("update %s: %w", m.name, err)))
	}
	if err := m.resolve(); err != nil {
		if IsFatal(err) {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Exit exits the current state and runs the OnExit hook. Current and start
// are kept.
func (m *Machine[ID]) Exit() error {
	var errs []error
	if child, err := m.lookup("exit", m.current); err != nil {
		errs = append(errs, err)
	} else if err := m.exitChild(child); err != nil {
		errs = append(errs, err)
	}
	if err := m.hooks.exit(); err != nil {
		errs = append(errs, m.report(fmt.Errorf("exit %s: %w", m.name, err)))
	}
	return errors.Join(errs...)
}

// ID returns the identifier of the machine within its parent.
func (m *Machine[ID]) ID() ID { return m.id }

// Name returns the name used in logs and metrics.
func (m *Machine[ID]) Name() string { return m.name }

// Parent returns the enclosing machine, or nil for a root.
func (m *Machine[ID]) Parent() *Machine[ID] { return m.owner }

// IsRoot reports whether the machine has no parent.
func (m *Machine[ID]) IsRoot() bool { return m.owner == nil }

// Current returns the current state id.
func (m *Machine[ID]) Current() ID { return m.current }

// Start returns the start state id.
func (m *Machine[ID]) Start() ID { return m.start }

// Next returns the requested-next state id.
func (m *Machine[ID]) Next() ID { return m.next }

// StateChanged reports whether a transition is pending.
func (m *Machine[ID]) StateChanged() bool { return m.next != m.current }

// Initialized reports whether Initialize completed.
func (m *Machine[ID]) Initialized() bool { return m.initialized }

// Err returns the fatal error that stopped the machine, if any.
func (m *Machine[ID]) Err() error { return m.fault }

// Variables returns the machine-scoped variable registry.
func (m *Machine[ID]) Variables() *Variables { return m.vars }

// Len returns the number of registered states.
func (m *Machine[ID]) Len() int { return len(m.states) }

// States returns the registered ids in insertion order.
func (m *Machine[ID]) States() []ID {
	out := make([]ID, len(m.order))
	copy(out, m.order)
	return out
}

// State returns the registered state for id.
func (m *Machine[ID]) State(id ID) (State[ID], bool) {
	s, ok := m.states[id]
	return s, ok
}

// ActivePath returns the current state ids from this machine down to the
// active leaf.
func (m *Machine[ID]) ActivePath() []ID {
	var path []ID
	for cur := m; cur != nil; {
		path = append(path, cur.current)
		child, ok := cur.states[cur.current]
		if !ok {
			break
		}
		cur, _ = child.(*Machine[ID])
	}
	return path
}

// lookup returns the registered state for id and reports ErrUnknownStateID
// otherwise.
func (m *Machine[ID]) lookup(op string, id ID) (State[ID], error) {
	s, ok := m.states[id]
	if !ok {
		return nil, m.report(fmt.Errorf("%s %s: state %v: %w", op, m.name, id, ErrUnknownStateID))
	}
	return s, nil
}

func (m *Machine[ID]) enterChild(child State[ID]) error {
	var errs []error
	if err := child.Enter(); err != nil {
		if IsFatal(err) {
			return err
		}
		errs = append(errs, m.wrapChild("enter", child, err))
	}
	for i, a := range child.base().actions {
		if !a.binding().initialized {
			continue
		}
		if err := a.Enter(); err != nil {
			errs = append(errs, m.report(fmt.Errorf("enter %v action %d: %w", child.ID(), i, err)))
		}
	}
	return errors.Join(errs...)
}

func (m *Machine[ID]) updateChild(child State[ID], dt time.Duration) error {
	var errs []error
	if err := child.Update(dt); err != nil {
		if IsFatal(err) {
			return err
		}
		errs = append(errs, m.wrapChild("update", child, err))
	}
	// Actions stop once a transition is pending. The check follows each
	// action, so the first one runs even when the state hook requested it.
	for i, a := range child.base().actions {
		if !a.binding().initialized {
			continue
		}
		if err := a.Update(dt); err != nil {
			errs = append(errs, m.report(fmt.Errorf("update %v action %d: %w", child.ID(), i, err)))
		}
		if m.StateChanged() {
			break
		}
	}
	return errors.Join(errs...)
}

func (m *Machine[ID]) exitChild(child State[ID]) error {
	var errs []error
	if err := child.Exit(); err != nil {
		errs = append(errs, m.wrapChild("exit", child, err))
	}
	for i, a := range child.base().actions {
		if !a.binding().initialized {
			continue
		}
		if err := a.Exit(); err != nil {
			errs = append(errs, m.report(fmt.Errorf("exit %v action %d: %w", child.ID(), i, err)))
		}
	}
	return errors.Join(errs...)
}

// wrapChild reports hook errors of leaves. Nested machines already reported
// their own errors.
func (m *Machine[ID]) wrapChild(op string, child State[ID], err error) error {
	if _, nested := child.(*Machine[ID]); nested {
		return err
	}
	return m.report(fmt.Errorf("%s state %v: %w", op, child.ID(), err))
}

// fail records err as the machine fault when it is fatal.
func (m *Machine[ID]) fail(err error) bool {
	if !IsFatal(err) {
		return false
	}
	m.next = m.current
	if m.fault == nil {
		m.fault = err
	}
	return true
}

// report sends err to the diagnostics sink and returns it.
func (m *Machine[ID]) report(err error) error {
	m.log.Error("state machine error", zap.String("machine", m.name), zap.Error(err))
	m.metrics.failed(m.name, err)
	return err
}
