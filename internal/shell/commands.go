// internal/shell/commands.go
package shell

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tamzrod/caparoc/internal/device"
	"github.com/tamzrod/caparoc/internal/register"
	"github.com/tamzrod/caparoc/internal/report"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

// ErrNoDevice is returned by device commands when no device is attached.
var ErrNoDevice = errors.New("no device connected")

// Commands runs the device operations and prints their results.
// The CLI and the interactive shell share it.
type Commands struct {
	dev *device.Device
	out io.Writer
}

// NewCommands binds commands to a device and an output. dev may be nil for
// the register catalogue commands.
func NewCommands(dev *device.Device, out io.Writer) *Commands {
	return &Commands{dev: dev, out: out}
}

// Exec dispatches one command line, already split into words.
func (c *Commands) Exec(args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "status", "s":
		return c.Status()
	case "info", "i":
		return c.Info()
	case "channel", "ch":
		m, ch, err := moduleChannel(rest, "channel <module> <channel>")
		if err != nil {
			return err
		}
		return c.Channel(m, ch)
	case "load":
		m, ch, err := moduleChannel(rest, "load <module> <channel>")
		if err != nil {
			return err
		}
		return c.Load(m, ch)
	case "on", "off":
		m, ch, err := moduleChannel(rest, cmd+" <module> <channel>")
		if err != nil {
			return err
		}
		return c.Switch(m, ch, cmd == "on")
	case "nominal", "n":
		return c.execNominal(rest)
	case "read", "r":
		return c.execRead(rest)
	case "write", "w":
		if len(rest) != 2 {
			return usage("write <addr> <value>")
		}
		addr, err := ParseAddress(rest[0])
		if err != nil {
			return err
		}
		v, err := ParseValue(rest[1])
		if err != nil {
			return err
		}
		return c.Write(addr, v)
	case "reg":
		return c.execReg(rest)
	case "reset":
		if len(rest) != 1 {
			return usage("reset app|errors|counters|quint")
		}
		return c.Reset(rest[0])
	}
	return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
}

func (c *Commands) execNominal(args []string) error {
	if len(args) == 0 {
		return usage("nominal get|set <module> <channel> [amps]")
	}
	switch strings.ToLower(args[0]) {
	case "get":
		m, ch, err := moduleChannel(args[1:], "nominal get <module> <channel>")
		if err != nil {
			return err
		}
		return c.NominalGet(m, ch)
	case "set":
		if len(args) != 4 {
			return usage("nominal set <module> <channel> <amps>")
		}
		m, ch, err := moduleChannel(args[1:3], "nominal set <module> <channel> <amps>")
		if err != nil {
			return err
		}
		amps, err := ParseValue(args[3])
		if err != nil {
			return err
		}
		return c.NominalSet(m, ch, amps)
	}
	return usage("nominal get|set <module> <channel> [amps]")
}

func (c *Commands) execRead(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("read <addr> [count]")
	}
	addr, err := ParseAddress(args[0])
	if err != nil {
		return err
	}
	count := uint16(1)
	if len(args) == 2 {
		if count, err = ParseValue(args[1]); err != nil {
			return err
		}
	}
	return c.Read(addr, count)
}

func (c *Commands) execReg(args []string) error {
	if len(args) == 0 {
		return usage("reg list [filter] | info <addr> | find <pattern>")
	}
	switch strings.ToLower(args[0]) {
	case "list":
		return c.RegList(strings.Join(args[1:], " "))
	case "info":
		if len(args) != 2 {
			return usage("reg info <addr>")
		}
		addr, err := ParseAddress(args[1])
		if err != nil {
			return err
		}
		return c.RegInfo(addr)
	case "find":
		if len(args) < 2 {
			return usage("reg find <pattern>")
		}
		return c.RegFind(strings.Join(args[1:], " "))
	}
	return usage("reg list [filter] | info <addr> | find <pattern>")
}

// ---- operations ----

func (c *Commands) Status() error {
	d, err := c.device()
	if err != nil {
		return err
	}

	g, err := d.GlobalStatus()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Global Status: %s\n", report.Global(g))

	// remaining values are informational; print what can be read
	if v, err := d.TotalSystemCurrent(); err == nil {
		fmt.Fprintf(c.out, "Total System Current: %d A\n", v)
	}
	if v, err := d.InputVoltage(); err == nil {
		fmt.Fprintf(c.out, "Input Voltage: %.2f V\n", v.Volts())
	}
	if v, err := d.SumOfNominalCurrents(); err == nil {
		fmt.Fprintf(c.out, "Sum of Nominal Currents: %d A\n", v)
	}
	if v, err := d.InternalTemperature(); err == nil {
		fmt.Fprintf(c.out, "Internal Temperature: %d °C\n", v)
	}
	return nil
}

func (c *Commands) Info() error {
	d, err := c.device()
	if err != nil {
		return err
	}
	s, err := d.Snapshot()
	if err != nil {
		return err
	}
	return report.DeviceInfo(c.out, s)
}

func (c *Commands) Channel(module, channel int) error {
	d, err := c.device()
	if err != nil {
		return err
	}
	st, err := d.ChannelStatus(module, channel)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Module %d Channel %d: [%s] (raw 0x%04X)\n", module, channel, report.Channel(st), st.Raw())
	return nil
}

func (c *Commands) Load(module, channel int) error {
	d, err := c.device()
	if err != nil {
		return err
	}
	cur, err := d.LoadCurrent(module, channel)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Module %d Channel %d load current: %.1f A (%d mA)\n", module, channel, cur.Amperes(), uint16(cur))
	return nil
}

func (c *Commands) Switch(module, channel int, on bool) error {
	d, err := c.device()
	if err != nil {
		return err
	}
	if err := d.SetChannel(module, channel, on); err != nil {
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	fmt.Fprintf(c.out, "Module %d Channel %d switched %s\n", module, channel, state)
	return nil
}

func (c *Commands) NominalGet(module, channel int) error {
	d, err := c.device()
	if err != nil {
		return err
	}
	v, err := d.NominalCurrent(module, channel)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Module %d Channel %d nominal current: %d A\n", module, channel, v)
	return nil
}

func (c *Commands) NominalSet(module, channel int, amps uint16) error {
	d, err := c.device()
	if err != nil {
		return err
	}
	res, err := d.SetNominalCurrent(module, channel, amps)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Module %d Channel %d nominal current set to %d A (verified, %d attempt(s), %s)\n",
		module, channel, amps, res.Attempts, res.Elapsed.Round(time.Millisecond))
	return nil
}

func (c *Commands) Read(addr, count uint16) error {
	d, err := c.device()
	if err != nil {
		return err
	}
	regs, err := d.ReadRaw(addr, count)
	if err != nil {
		return err
	}
	for i, v := range regs {
		a := addr + uint16(i)
		line := fmt.Sprintf("0x%04X: 0x%04X (%d)", a, v, v)
		if in, ok := register.Lookup(a); ok {
			line += "  " + in.Name
		}
		fmt.Fprintln(c.out, line)
	}
	return nil
}

func (c *Commands) Write(addr, value uint16) error {
	d, err := c.device()
	if err != nil {
		return err
	}
	if err := d.WriteRaw(addr, value); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Wrote 0x%04X = %d\n", addr, value)
	return nil
}

// Reset triggers one of the device resets: app, errors, counters, quint.
func (c *Commands) Reset(which string) error {
	d, err := c.device()
	if err != nil {
		return err
	}
	var fn func() error
	switch strings.ToLower(which) {
	case "app":
		fn = d.ResetApplicationParams
	case "errors":
		fn = d.ResetChannelErrors
	case "counters":
		fn = d.ResetErrorCounters
	case "quint":
		fn = d.ResetQuintParams
	default:
		return usage("reset app|errors|counters|quint")
	}
	if err := fn(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Reset %s triggered\n", which)
	return nil
}

func (c *Commands) RegList(filter string) error {
	list := register.Filter(filter)
	for _, in := range list {
		c.printInfo(in)
	}
	fmt.Fprintf(c.out, "%d register(s)\n", len(list))
	return nil
}

func (c *Commands) RegInfo(addr uint16) error {
	fmt.Fprintln(c.out, register.Describe(addr))
	return nil
}

func (c *Commands) RegFind(pattern string) error {
	list := register.Find(pattern)
	if len(list) == 0 {
		fmt.Fprintf(c.out, "No registers match %q\n", pattern)
		return nil
	}
	for _, in := range list {
		c.printInfo(in)
	}
	return nil
}

func (c *Commands) printInfo(in register.Info) {
	fmt.Fprintf(c.out, "0x%04X  %-8s %-2s  %s\n", in.Address, in.Type, in.Access, in.Name)
}

func (c *Commands) device() (*device.Device, error) {
	if c.dev == nil {
		return nil, ErrNoDevice
	}
	return c.dev, nil
}

// ---- parsing ----

// ParseAddress accepts hex (0x...) or decimal register addresses.
func ParseAddress(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: expected hex (0x...) or decimal 0..65535", s)
	}
	return uint16(v), nil
}

// ParseValue accepts hex or decimal 16-bit values.
func ParseValue(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: expected 0..65535", s)
	}
	return uint16(v), nil
}

func parseOrdinal(field, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: expected a number", field, s)
	}
	return v, nil
}

// ParseModuleChannel parses a module and channel number. Range checks are
// left to the device, which knows the connected topology.
func ParseModuleChannel(module, channel string) (int, int, error) {
	m, err := parseOrdinal("module", module)
	if err != nil {
		return 0, 0, err
	}
	c, err := parseOrdinal("channel", channel)
	if err != nil {
		return 0, 0, err
	}
	return m, c, nil
}

func moduleChannel(args []string, form string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, usage(form)
	}
	return ParseModuleChannel(args[0], args[1])
}

func usage(form string) error {
	return fmt.Errorf("%w: %s", ErrUsage, form)
}
