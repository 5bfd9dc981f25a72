// cmd/caparoc-sim/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tamzrod/caparoc/internal/config"
	"github.com/tamzrod/caparoc/internal/sim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("caparoc-sim: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		listen   string
		unitID   uint8
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "caparoc-sim",
		Short:        "Simulated CAPAROC power module served over Modbus TCP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			// --------------------
			// Load + validate config
			// --------------------

			cfg := &config.Config{}
			if cfgPath != "" {
				var err error
				if cfg, err = config.Load(cfgPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("listen") {
				cfg.Simulator.Listen = listen
			}
			if cmd.Flags().Changed("unit-id") {
				cfg.Simulator.UnitID = unitID
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			config.Normalize(cfg)

			// --------------------
			// Device + server
			// --------------------

			dev := sim.New(cfg.Simulator.DeviceConfig())
			srv, err := sim.NewServer(sim.ServerConfig{
				Listen: cfg.Simulator.Listen,
				UnitID: cfg.Simulator.UnitID,
				Logger: logger,
			}, dev)
			if err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				return err
			}
			defer srv.Stop()

			logger.Info("simulator listening",
				"addr", cfg.Simulator.Listen,
				"unit_id", cfg.Simulator.UnitID,
				"modules", len(cfg.Simulator.Modules),
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			logger.Info("simulator stopping")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "YAML configuration file (simulator section)")
	f.StringVarP(&listen, "listen", "l", "", "listen address host:port (default "+config.DefaultSimulatorListen+")")
	f.Uint8VarP(&unitID, "unit-id", "u", 0, "unit id to answer (default 1)")
	f.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}
