package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/hfsm/internal/logging"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the tree for a number of ticks",
		Long: `Builds the tree and advances it with fixed ticks. Without --realtime the
ticks run back to back; with --realtime they follow the wall clock and
--ticks 0 runs until interrupted. --listen serves metrics and the live graph.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			log := logging.New(cfg.Log.Level, logging.Format(cfg.Log.Format))
			defer log.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, err := newHost(ctx, cfg, log)
			if err != nil {
				return err
			}
			return run(ctx, h, cmd)
		},
	}

	cmd.Flags().Int("ticks", 0, "Ticks to run, 0 runs until interrupted in realtime mode (overrides config)")
	cmd.Flags().Duration("tick-rate", 0, "Fixed tick duration, e.g. 16ms (overrides config)")
	cmd.Flags().Bool("realtime", false, "Tick on the wall clock with the real-time runtime")
	cmd.Flags().String("listen", "", "Address of the diagnostics server, e.g. :8080")
	return cmd
}

// run drives h and, with cfg.Listen set, serves diagnostics until the run
// ends. A direct run keeps serving until ctx is done so the final tree can be
// inspected.
func run(ctx context.Context, h *host, cmd *cobra.Command) error {
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	if h.cfg.Listen != "" {
		g.Go(func() error { return serve(serveCtx, h.cfg.Listen, h) })
	}

	g.Go(func() error {
		var err error
		if h.cfg.Realtime {
			err = h.runRealtime(gctx)
		} else {
			err = h.runDirect(gctx)
		}
		h.close()

		var active []string
		if h.cfg.Realtime {
			// The tick goroutine is gone; nothing else touches the tree.
			active = h.root.ActivePath()
		} else {
			_ = h.exec(ctx, func() { active = h.root.ActivePath() })
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active: %v\n", active)
		if err != nil {
			return err
		}

		if h.cfg.Listen == "" || h.cfg.Realtime {
			stopServing()
			return nil
		}
		h.log.Info("run finished, serving until interrupted")
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		h.log.Error("run failed", zap.Error(err))
		return err
	}
	return nil
}
