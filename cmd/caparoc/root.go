// cmd/caparoc/root.go
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tamzrod/caparoc/internal/config"
	"github.com/tamzrod/caparoc/internal/device"
	"github.com/tamzrod/caparoc/internal/shell"
	tmodbus "github.com/tamzrod/caparoc/internal/transport/modbus"
)

// app carries what every subcommand needs after flag parsing.
type app struct {
	cfgPath  string
	endpoint string
	unitID   uint8
	timeout  time.Duration
	logLevel string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "caparoc",
		Short:         "Modbus TCP tool for CAPAROC circuit breaker systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "YAML configuration file")
	pf.StringVarP(&a.endpoint, "endpoint", "e", "", "device endpoint host:port (default "+config.DefaultEndpoint+")")
	pf.Uint8VarP(&a.unitID, "unit-id", "u", 0, "Modbus unit id")
	pf.DurationVar(&a.timeout, "timeout", 0, "Modbus request timeout")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.newStatusCmd(),
		a.newInfoCmd(),
		a.newChannelCmd(),
		a.newLoadCmd(),
		a.newSwitchCmd("on"),
		a.newSwitchCmd("off"),
		a.newNominalCmd(),
		a.newReadCmd(),
		a.newWriteCmd(),
		a.newRegCmd(),
		a.newResetCmd(),
		a.newExportCmd(),
		a.newShellCmd(),
	)
	return root, a
}

// setup loads the config file, applies flag overrides, then validates and
// normalizes. Flags win over the file.
func (a *app) setup(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
	}
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.log)

	cfg := &config.Config{}
	if a.cfgPath != "" {
		var err error
		if cfg, err = config.Load(a.cfgPath); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Device.Endpoint = a.endpoint
	}
	if flags.Changed("unit-id") {
		cfg.Device.UnitID = a.unitID
	}
	if flags.Changed("timeout") {
		cfg.Device.TimeoutMs = int(a.timeout / time.Millisecond)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	a.cfg = cfg
	return nil
}

// connect opens the Modbus connection and builds the device facade.
func (a *app) connect() (*device.Device, func(), error) {
	client, err := tmodbus.New(tmodbus.Config{
		Endpoint: a.cfg.Device.Endpoint,
		UnitID:   a.cfg.Device.UnitID,
		Timeout:  a.cfg.Device.Timeout(),
		FrameLog: tmodbus.FrameLogger(a.log),
	})
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("connected", "endpoint", a.cfg.Device.Endpoint, "unit_id", a.cfg.Device.UnitID)

	dev := device.New(client,
		device.WithLogger(a.log),
		device.WithTiming(a.cfg.Protect.Timing()),
		device.WithDialOnlyModels(a.cfg.Protect.DialOnlyModels),
	)
	closeFn := func() {
		if err := client.Close(); err != nil {
			a.log.Warn("close connection failed", "err", err)
		}
	}
	return dev, closeFn, nil
}

// withDevice runs fn against a freshly connected device.
func (a *app) withDevice(cmd *cobra.Command, fn func(c *shell.Commands) error) error {
	dev, closeFn, err := a.connect()
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(shell.NewCommands(dev, cmd.OutOrStdout()))
}
