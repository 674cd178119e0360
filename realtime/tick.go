package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/hfsm"
)

// tickLoop is the main tick execution loop
func (rt *Runtime) tickLoop(ctx context.Context, ticker *time.Ticker, stopped chan struct{}) {
	defer close(stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rt.safeTick(rt.tickRate); fatal(err) {
				rt.log.Error("runtime halted", zap.Error(err))
				return
			}
		}
	}
}

// safeTick processes one tick and turns a panic into a fatal error.
func (rt *Runtime) safeTick(dt time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Error("panic in tick", zap.Any("panic", r), zap.Uint64("tick", rt.TickNumber()))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			rt.setErr(err)
		}
	}()
	return rt.processTick(dt)
}

// processTick processes one complete tick
func (rt *Runtime) processTick(dt time.Duration) error {
	if err := rt.Err(); err != nil {
		return err
	}

	// Phase 1: Collect commands atomically
	commands := rt.collectCommands()

	// Phase 2: Sort for deterministic order
	sortCommands(commands)

	// Phase 3: Run commands on the tick goroutine
	rt.runCommands(commands)

	// Phase 4: Advance the tree by one fixed step
	if err := rt.driver.Update(dt); err != nil {
		if fatal(err) {
			rt.setErr(err)
			return err
		}
		rt.log.Debug("tick completed with errors", zap.Error(err))
	}

	rt.mu.Lock()
	rt.tickNum++
	rt.mu.Unlock()
	rt.ticks.Inc()
	return nil
}

// collectCommands atomically retrieves and clears the command batch
func (rt *Runtime) collectCommands() []command {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	commands := rt.batch
	rt.batch = make([]command, 0, cap(rt.batch))

	return commands
}

func (rt *Runtime) runCommands(commands []command) {
	for _, c := range commands {
		if c.fn == nil {
			continue
		}
		if err := c.fn(); err != nil {
			rt.log.Warn("posted command failed", zap.Uint64("seq", c.sequenceNum), zap.Error(err))
		}
	}
}

// fatal reports whether err stops the runtime.
func fatal(err error) bool {
	return hfsm.IsFatal(err) || errors.Is(err, ErrPanic)
}
