package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Post when the per-tick command budget is used up.
	ErrQueueFull = errors.New("command queue full")
	// ErrRunning is returned by Start and Step while the tick loop is active.
	ErrRunning = errors.New("runtime already running")
	// ErrNotRunning is returned by Stop before Start.
	ErrNotRunning = errors.New("runtime not running")
	// ErrPanic wraps a panic recovered from a tick. It stops the runtime.
	ErrPanic = errors.New("panic in tick")
)

// Driver is the host contract of a machine tree: Initialize once, Update once
// per tick and Exit on teardown, all from one goroutine. *hfsm.Machine
// satisfies it.
type Driver interface {
	Initialize() error
	Update(dt time.Duration) error
	Exit() error
}

// Config configures the real-time runtime
type Config struct {
	TickRate           time.Duration // Fixed tick rate and dt passed to Update (default 60 FPS)
	MaxCommandsPerTick int           // Command queue capacity (default: 1000)
	Logger             *zap.Logger
	Registerer         prometheus.Registerer // Registers hfsm_ticks_total when set
}

// Runtime drives a Driver at a fixed tick rate on its own goroutine. Other
// goroutines reach the tree only through Post.
type Runtime struct {
	driver   Driver
	tickRate time.Duration
	log      *zap.Logger
	runID    string
	ticks    prometheus.Counter

	// Command batching
	mu          sync.Mutex
	batch       []command
	sequenceNum uint64
	tickNum     uint64
	initialized bool
	running     bool
	err         error

	// Control
	ticker  *time.Ticker
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewRuntime creates a tick-based runtime for driver.
func NewRuntime(driver Driver, cfg Config) *Runtime {
	if cfg.MaxCommandsPerTick == 0 {
		cfg.MaxCommandsPerTick = 1000
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = 16667 * time.Microsecond // Default 60 FPS
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	runID := uuid.NewString()
	return &Runtime{
		driver:   driver,
		tickRate: cfg.TickRate,
		log:      cfg.Logger.Named("realtime").With(zap.String("run_id", runID)),
		runID:    runID,
		ticks: promauto.With(cfg.Registerer).NewCounter(prometheus.CounterOpts{
			Namespace:   "hfsm",
			Name:        "ticks_total",
			Help:        "Total number of ticks processed by the real-time runtime",
			ConstLabels: prometheus.Labels{"run_id": runID},
		}),
		batch: make([]command, 0, cfg.MaxCommandsPerTick),
	}
}

// Start initializes the driver and begins ticking until ctx is cancelled,
// Stop is called or the driver reports a fatal error.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	if rt.running {
		rt.mu.Unlock()
		return ErrRunning
	}
	rt.mu.Unlock()

	if err := rt.Initialize(); err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	var tickCtx context.Context
	tickCtx, rt.cancel = context.WithCancel(ctx)
	rt.ticker = time.NewTicker(rt.tickRate)
	rt.stopped = make(chan struct{})
	rt.running = true

	rt.log.Info("runtime started", zap.Duration("tick_rate", rt.tickRate))
	go rt.tickLoop(tickCtx, rt.ticker, rt.stopped)
	return nil
}

// Stop ends the tick loop, waits for it and exits the driver.
func (rt *Runtime) Stop() error {
	rt.mu.Lock()
	if !rt.running {
		rt.mu.Unlock()
		return ErrNotRunning
	}
	cancel, ticker, stopped := rt.cancel, rt.ticker, rt.stopped
	rt.mu.Unlock()

	cancel()
	ticker.Stop()
	// Wait for tick loop to exit
	<-stopped

	rt.mu.Lock()
	rt.running = false
	rt.mu.Unlock()

	if err := rt.driver.Exit(); err != nil {
		rt.log.Error("driver exit failed", zap.Error(err))
		return fmt.Errorf("exit driver: %w", err)
	}
	rt.log.Info("runtime stopped", zap.Uint64("ticks", rt.TickNumber()))
	return nil
}

// Step runs one tick of dt synchronously on the calling goroutine. It is the
// deterministic alternative to Start for tests and offline simulation.
func (rt *Runtime) Step(dt time.Duration) error {
	rt.mu.Lock()
	running := rt.running
	rt.mu.Unlock()
	if running {
		return ErrRunning
	}
	if err := rt.Initialize(); err != nil {
		return err
	}
	return rt.safeTick(dt)
}

// Done is closed when the tick loop exits. It is nil before Start.
func (rt *Runtime) Done() <-chan struct{} {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stopped
}

// Err returns the fatal error that stopped the runtime, if any.
func (rt *Runtime) Err() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.err
}

// TickNumber returns the number of processed ticks
func (rt *Runtime) TickNumber() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.tickNum
}

// RunID identifies this runtime in logs and metrics.
func (rt *Runtime) RunID() string { return rt.runID }

// Initialize initializes the driver once. Start and Step call it implicitly.
// After a fatal error it returns that error.
func (rt *Runtime) Initialize() error {
	rt.mu.Lock()
	if rt.initialized {
		rt.mu.Unlock()
		return rt.Err()
	}
	rt.initialized = true
	rt.mu.Unlock()

	if err := rt.driver.Initialize(); err != nil {
		if !fatal(err) {
			rt.log.Warn("driver initialized with errors", zap.Error(err))
			return nil
		}
		rt.setErr(err)
		rt.log.Error("driver initialization failed", zap.Error(err))
		return fmt.Errorf("initialize driver: %w", err)
	}
	return nil
}

func (rt *Runtime) setErr(err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.err == nil {
		rt.err = err
	}
}
