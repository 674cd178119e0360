package testutil

import (
	"context"
	"time"

	"github.com/comalice/hfsm/realtime"
)

// RuntimeAdapter provides a common interface for driving a machine tree
// directly and through the real-time runtime. This allows running the same
// scenario on both hosts.
type RuntimeAdapter interface {
	Start(ctx context.Context) error
	Stop() error
	Tick(dt time.Duration) error
}

// DirectAdapter calls the driver's lifecycle methods itself.
type DirectAdapter struct {
	d realtime.Driver
}

// NewDirectAdapter creates an adapter that drives d without a runtime.
func NewDirectAdapter(d realtime.Driver) *DirectAdapter {
	return &DirectAdapter{d: d}
}

func (a *DirectAdapter) Start(ctx context.Context) error {
	return a.d.Initialize()
}

func (a *DirectAdapter) Stop() error {
	return a.d.Exit()
}

func (a *DirectAdapter) Tick(dt time.Duration) error {
	return a.d.Update(dt)
}

// StepAdapter wraps a real-time runtime used in manual stepping mode.
type StepAdapter struct {
	rt *realtime.Runtime
	d  realtime.Driver
}

// NewStepAdapter creates an adapter that steps d through a realtime.Runtime.
func NewStepAdapter(d realtime.Driver, cfg realtime.Config) *StepAdapter {
	return &StepAdapter{
		rt: realtime.NewRuntime(d, cfg),
		d:  d,
	}
}

// Runtime returns the wrapped runtime.
func (a *StepAdapter) Runtime() *realtime.Runtime { return a.rt }

func (a *StepAdapter) Start(ctx context.Context) error {
	return a.rt.Initialize()
}

func (a *StepAdapter) Stop() error {
	return a.d.Exit()
}

func (a *StepAdapter) Tick(dt time.Duration) error {
	return a.rt.Step(dt)
}
