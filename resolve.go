package hfsm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// resolve applies pending transition requests until the machine reaches a
// fixed point (next == current). Each hop exits the current child, enters the
// requested one and notifies subscribers. A child whose Enter requests
// another transition produces a further hop in the same call.
func (m *Machine[ID]) resolve() error {
	var errs []error
	hops := 0
	defer func() { m.metrics.resolved(m.name, hops) }()

	for m.next != m.current {
		to := m.next
		target, ok := m.states[to]
		if !ok {
			m.next = m.current
			errs = append(errs, m.report(fmt.Errorf("change state %s: %v -> %v: %w", m.name, m.current, to, ErrUnknownStateID)))
			break
		}
		if hops >= m.maxHops {
			err := m.report(fmt.Errorf("%w: %s did not settle after %d hops (last request %v -> %v)",
				ErrTransitionLoop, m.name, hops, m.current, to))
			m.fail(err)
			return err
		}
		hops++

		prev := m.current
		if from, ok := m.states[prev]; ok {
			if err := m.exitChild(from); err != nil {
				errs = append(errs, err)
			}
		}
		m.current = to
		if err := m.enterChild(target); err != nil {
			if m.fail(err) {
				return m.fault
			}
			errs = append(errs, err)
		}
		m.notify(prev, to, hops)
	}
	return errors.Join(errs...)
}

func (m *Machine[ID]) notify(prev, next ID, hop int) {
	m.log.Debug("transition",
		zap.Any("from", prev),
		zap.Any("to", next),
		zap.Int("hop", hop),
	)
	m.metrics.transition(m.name, fmt.Sprint(prev), fmt.Sprint(next))
	for _, fn := range m.subscribers {
		fn(prev, next)
	}
}
