package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/examples/creature"
	"github.com/comalice/hfsm/internal/config"
	"github.com/comalice/hfsm/internal/production"
	"github.com/comalice/hfsm/realtime"
)

var errStopped = errors.New("runtime stopped")

// host owns a creature tree and everything that observes it.
type host struct {
	cfg      config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	root     *hfsm.Machine[string]
	vis      *production.Visualizer[string]
	rt       *realtime.Runtime

	transitions chan production.Transition[string]
	publisher   *production.ChannelPublisher[string]
	drained     chan struct{}

	// exec runs fn on the goroutine that drives root.
	exec func(ctx context.Context, fn func()) error
	mu   sync.Mutex
}

func newHost(ctx context.Context, cfg config.Config, log *zap.Logger) (*host, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	opts := []hfsm.Option{
		hfsm.WithLogger(log),
		hfsm.WithMetrics(hfsm.NewMetrics(reg)),
		hfsm.WithMaxHops(cfg.MaxHops),
	}

	var (
		root *hfsm.Machine[string]
		err  error
	)
	if cfg.Layout != "" {
		data, rerr := os.ReadFile(cfg.Layout)
		if rerr != nil {
			return nil, fmt.Errorf("read layout: %w", rerr)
		}
		root, err = creature.FromLayout(data, opts...)
	} else {
		root, err = creature.New(creature.DefaultDwell, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}

	h := &host{
		cfg:         cfg,
		log:         log,
		registry:    reg,
		root:        root,
		vis:         production.NewVisualizer[string](),
		transitions: make(chan production.Transition[string], 256),
		drained:     make(chan struct{}),
	}
	h.exec = h.execLocked
	if cfg.Realtime {
		h.rt = realtime.NewRuntime(root, realtime.Config{
			TickRate:   cfg.TickRate,
			Logger:     log,
			Registerer: reg,
		})
		h.exec = h.postAndWait
	}
	h.vis.Attach(root)
	h.publisher = production.NewChannelPublisher(h.transitions)
	h.publisher.Attach(ctx, root)

	go h.drain()
	return h, nil
}

// drain logs published transitions until the publisher is closed.
func (h *host) drain() {
	defer close(h.drained)
	for t := range h.transitions {
		h.log.Info("transition",
			zap.String("machine", t.Machine),
			zap.String("from", t.From),
			zap.String("to", t.To),
		)
	}
}

func (h *host) execLocked(_ context.Context, fn func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
	return nil
}

// runDirect initializes the tree and advances it cfg.Ticks times by
// cfg.TickRate without sleeping.
func (h *host) runDirect(ctx context.Context) error {
	var err error
	_ = h.exec(ctx, func() { err = h.root.Initialize() })
	if err != nil {
		if hfsm.IsFatal(err) {
			return err
		}
		h.log.Warn("initialize", zap.Error(err))
	}

	for tick := 0; tick < h.cfg.Ticks; tick++ {
		if ctx.Err() != nil {
			return nil
		}
		_ = h.exec(ctx, func() { err = h.root.Update(h.cfg.TickRate) })
		if err != nil {
			if hfsm.IsFatal(err) {
				return err
			}
			h.log.Warn("update", zap.Int("tick", tick), zap.Error(err))
		}
	}
	return nil
}

// runRealtime drives the tree with h.rt until ctx is done, the runtime stops
// or cfg.Ticks ticks have run.
func (h *host) runRealtime(ctx context.Context) error {
	if err := h.rt.Start(ctx); err != nil {
		return err
	}
	var limit <-chan struct{}
	if h.cfg.Ticks > 0 {
		limit = h.tickLimit(ctx)
	}

	select {
	case <-ctx.Done():
	case <-h.rt.Done():
	case <-limit:
	}
	if err := h.rt.Stop(); err != nil && !errors.Is(err, realtime.ErrNotRunning) {
		h.log.Warn("stop", zap.Error(err))
	}
	h.log.Info("runtime finished", zap.Uint64("ticks", h.rt.TickNumber()), zap.String("run_id", h.rt.RunID()))
	return h.rt.Err()
}

// postAndWait runs fn as a runtime command and waits for it.
func (h *host) postAndWait(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := h.rt.Post(func() error {
		fn()
		close(done)
		return nil
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-h.rt.Done():
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tickLimit returns a channel closed once the runtime has processed
// cfg.Ticks ticks.
func (h *host) tickLimit(ctx context.Context) <-chan struct{} {
	limit := make(chan struct{})
	go func() {
		poll := time.NewTicker(h.cfg.TickRate)
		defer poll.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.rt.Done():
				return
			case <-poll.C:
				if h.rt.TickNumber() >= uint64(h.cfg.Ticks) {
					close(limit)
					return
				}
			}
		}
	}()
	return limit
}

// close stops publishing and waits for logged transitions.
func (h *host) close() {
	if err := h.publisher.Close(); err != nil {
		h.log.Warn("close publisher", zap.Error(err))
	}
	<-h.drained
}
