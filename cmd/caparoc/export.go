// cmd/caparoc/export.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tamzrod/caparoc/internal/exporter"
	"github.com/tamzrod/caparoc/internal/poller"
)

func (a *app) newExportCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Poll the device and serve Prometheus metrics on /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.Export.Listen = listen
			}

			p, closePoller, err := poller.Build(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer func() { _ = closePoller() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := exporter.NewMetrics()
			go exporter.New(p, m, a.log).Run(ctx)

			return exporter.Serve(ctx, a.cfg.Export.Listen, m, a.log)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "metrics listen address (overrides export.listen)")
	return cmd
}
