package hfsm

import (
	"errors"
	"fmt"
)

// Bind resolves every slot against vars. Nil slots are skipped and reported
// with ErrNilField; a nil vars binds nothing and reports ErrNilOwner.
func Bind(vars *Variables, slots ...FieldSlot) error {
	if vars == nil {
		return fmt.Errorf("bind %d fields: %w", len(slots), ErrNilOwner)
	}
	var errs []error
	for i, slot := range slots {
		if slot == nil {
			errs = append(errs, fmt.Errorf("field %d: %w", i, ErrNilField))
			continue
		}
		slot.bind(vars)
	}
	return errors.Join(errs...)
}

func bindDeclared(vars *Variables, target any) error {
	d, ok := target.(FieldDeclarer)
	if !ok {
		return nil
	}
	return Bind(vars, d.Fields()...)
}

// initializeNode runs phase one for child under m: owner back-reference, field
// binding, the child's Initialize hook and then every attached action.
func (m *Machine[ID]) initializeNode(child State[ID]) error {
	n := child.base()
	n.owner = m

	if err := bindDeclared(m.vars, child); err != nil {
		n.owner = nil
		return err
	}
	if err := child.Initialize(); err != nil {
		n.owner = nil
		return err
	}
	n.initialized = true

	var errs []error
	for i, a := range n.actions {
		ab := a.binding()
		ab.state = child
		if err := bindDeclared(m.vars, a); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
			continue
		}
		if err := a.Initialize(); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
			continue
		}
		ab.initialized = true
	}
	return errors.Join(errs...)
}

// completeNode runs phase two for child: its CompleteInitialize, then the
// CompleteInitialize of each attached action. Each node completes once.
func completeNode[ID comparable](child State[ID]) error {
	n := child.base()
	if n.completed {
		return nil
	}
	var errs []error
	if err := child.CompleteInitialize(); err != nil {
		errs = append(errs, err)
	}
	n.completed = true
	for i, a := range n.actions {
		ab := a.binding()
		if ab.completed || !ab.initialized {
			continue
		}
		ab.completed = true
		if err := a.CompleteInitialize(); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
