package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comalice/hfsm/internal/config"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the tree as Graphviz DOT or JSON",
		Long: `Builds and initializes the tree, advances it by --ticks fixed ticks and
prints the tree with its active path and the transitions taken so far.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			return graph(cmd, cfg, format)
		},
	}

	cmd.Flags().Int("ticks", 0, "Ticks to run before rendering (overrides config)")
	cmd.Flags().Duration("tick-rate", 0, "Fixed tick duration, e.g. 16ms (overrides config)")
	cmd.Flags().String("format", "dot", "Output format (dot, json)")
	return cmd
}

func graph(cmd *cobra.Command, cfg config.Config, format string) error {
	if format != "dot" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}
	// The graph is rendered from a direct run; transitions are not logged.
	cfg.Realtime = false
	h, err := newHost(cmd.Context(), cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer h.close()

	if err := h.runDirect(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := h.vis.ExportJSON(h.root)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	fmt.Fprint(out, h.vis.ExportDOT(h.root))
	return nil
}
