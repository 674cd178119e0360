package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/comalice/hfsm/internal/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Drive a hierarchical state machine tree",
		Long: `demo builds the creature machine tree, either in code or from a builder
layout, and drives it with fixed ticks or with the real-time runtime.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	cmd.PersistentFlags().StringP("config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "Log format (console, json)")
	cmd.PersistentFlags().String("layout", "", "Builder layout file; the built-in creature tree when empty")
	cmd.PersistentFlags().Int("max-hops", 0, "Transition hops per update before a machine faults")

	cmd.AddCommand(newRunCmd(), newGraphCmd())
	return cmd
}

// loadConfig reads --config, if any, and applies every flag the user set.
func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.Log.Level = f.Value.String()
		case "log-format":
			cfg.Log.Format = f.Value.String()
		case "layout":
			cfg.Layout = f.Value.String()
		case "max-hops":
			cfg.MaxHops, _ = flags.GetInt(f.Name)
		case "ticks":
			cfg.Ticks, _ = flags.GetInt(f.Name)
		case "tick-rate":
			cfg.TickRate, _ = flags.GetDuration(f.Name)
		case "realtime":
			cfg.Realtime, _ = flags.GetBool(f.Name)
		case "listen":
			cfg.Listen = f.Value.String()
		}
	})
	return cfg, cfg.Validate()
}
