// cmd/caparoc/commands.go
package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamzrod/caparoc/internal/shell"
)

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show global status and system values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.Status() })
		},
	}
}

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show full device information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.Info() })
		},
	}
}

func (a *app) newChannelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channel <module> <channel>",
		Short: "Show channel status flags",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ch, err := shell.ParseModuleChannel(args[0], args[1])
			if err != nil {
				return err
			}
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.Channel(m, ch) })
		},
	}
}

func (a *app) newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <module> <channel>",
		Short: "Show channel load current",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ch, err := shell.ParseModuleChannel(args[0], args[1])
			if err != nil {
				return err
			}
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.Load(m, ch) })
		},
	}
}

func (a *app) newSwitchCmd(state string) *cobra.Command {
	return &cobra.Command{
		Use:   state + " <module> <channel>",
		Short: "Switch a channel " + state,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ch, err := shell.ParseModuleChannel(args[0], args[1])
			if err != nil {
				return err
			}
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.Switch(m, ch, state == "on") })
		},
	}
}

func (a *app) newNominalCmd() *cobra.Command {
	nominal := &cobra.Command{
		Use:   "nominal",
		Short: "Read or write a channel's nominal current",
	}

	nominal.AddCommand(&cobra.Command{
		Use:   "get <module> <channel>",
		Short: "Read the nominal current (A)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ch, err := shell.ParseModuleChannel(args[0], args[1])
			if err != nil {
				return err
			}
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.NominalGet(m, ch) })
		},
	})

	nominal.AddCommand(&cobra.Command{
		Use:   "set <module> <channel> <amps>",
		Short: "Write the nominal current (A) with the lock/verify handshake",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ch, err := shell.ParseModuleChannel(args[0], args[1])
			if err != nil {
				return err
			}
			amps, err := shell.ParseValue(args[2])
			if err != nil {
				return err
			}
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.NominalSet(m, ch, amps) })
		},
	})

	return nominal
}

func (a *app) newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <addr> [count]",
		Short: "Read holding registers (hex or decimal address)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := shell.ParseAddress(args[0])
			if err != nil {
				return err
			}
			count := uint16(1)
			if len(args) == 2 {
				if count, err = shell.ParseValue(args[1]); err != nil {
					return err
				}
			}
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.Read(addr, count) })
		},
	}
}

func (a *app) newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <addr> <value>",
		Short: "Write one holding register",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := shell.ParseAddress(args[0])
			if err != nil {
				return err
			}
			v, err := shell.ParseValue(args[1])
			if err != nil {
				return err
			}
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.Write(addr, v) })
		},
	}
}

// reg works on the built-in catalogue and never connects.
func (a *app) newRegCmd() *cobra.Command {
	reg := &cobra.Command{
		Use:   "reg",
		Short: "Browse the register catalogue",
	}

	reg.AddCommand(&cobra.Command{
		Use:   "list [filter]",
		Short: "List known registers, optionally filtered by name or description",
		RunE: func(cmd *cobra.Command, args []string) error {
			return shell.NewCommands(nil, cmd.OutOrStdout()).RegList(strings.Join(args, " "))
		},
	})
	reg.AddCommand(&cobra.Command{
		Use:   "info <addr>",
		Short: "Describe one register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := shell.ParseAddress(args[0])
			if err != nil {
				return err
			}
			return shell.NewCommands(nil, cmd.OutOrStdout()).RegInfo(addr)
		},
	})
	reg.AddCommand(&cobra.Command{
		Use:   "find <pattern>",
		Short: "Find registers by name (case-insensitive)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return shell.NewCommands(nil, cmd.OutOrStdout()).RegFind(strings.Join(args, " "))
		},
	})

	return reg
}

func (a *app) newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "reset app|errors|counters|quint",
		Short:     "Trigger a device reset",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"app", "errors", "counters", "quint"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDevice(cmd, func(c *shell.Commands) error { return c.Reset(args[0]) })
		},
	}
}

func (a *app) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, closeFn, err := a.connect()
			if err != nil {
				return err
			}
			defer closeFn()

			sh, err := shell.New(dev)
			if err != nil {
				return err
			}
			sh.Run()
			return nil
		},
	}
}
