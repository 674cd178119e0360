package hfsm

import (
	"time"

	"go.uber.org/zap"
)

// DefaultMaxHops bounds how many hops a single resolution may take before the
// machine reports ErrTransitionLoop.
const DefaultMaxHops = 64

// Hooks are the extension points of a Machine. OnEnter, OnUpdate and OnExit
// run right after the machine delegated the call to its current child.
// OnCompleteInitialize runs before the children complete. Nil hooks are
// skipped.
type Hooks struct {
	OnInitialize         func() error
	OnCompleteInitialize func() error
	OnEnter              func() error
	OnUpdate             func(dt time.Duration) error
	OnExit               func() error
}

func (h Hooks) initialize() error {
	if h.OnInitialize == nil {
		return nil
	}
	return h.OnInitialize()
}

func (h Hooks) completeInitialize() error {
	if h.OnCompleteInitialize == nil {
		return nil
	}
	return h.OnCompleteInitialize()
}

func (h Hooks) enter() error {
	if h.OnEnter == nil {
		return nil
	}
	return h.OnEnter()
}

func (h Hooks) update(dt time.Duration) error {
	if h.OnUpdate == nil {
		return nil
	}
	return h.OnUpdate(dt)
}

func (h Hooks) exit() error {
	if h.OnExit == nil {
		return nil
	}
	return h.OnExit()
}

type settings struct {
	name    string
	logger  *zap.Logger
	metrics *Metrics
	maxHops int
	hooks   Hooks
}

// Option configures a Machine via the functional options pattern.
type Option func(*settings)

// WithName sets the name used in logs and metric labels.
// Defaults to the formatted machine id.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithLogger configures the diagnostics sink. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics configures Prometheus collectors for transitions, hops and errors.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithMaxHops overrides DefaultMaxHops. Values below 1 keep the default.
func WithMaxHops(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxHops = n
		}
	}
}

// WithHooks installs machine-level extension points.
func WithHooks(h Hooks) Option {
	return func(s *settings) {
		s.hooks = h
	}
}
