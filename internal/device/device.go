// internal/device/device.go
package device

import (
	"fmt"
	"log/slog"

	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/protect"
	"github.com/tamzrod/caparoc/internal/register"
	"github.com/tamzrod/caparoc/internal/status"
	"github.com/tamzrod/caparoc/internal/topology"
	"github.com/tamzrod/caparoc/internal/transport"
)

// MaxReadCount is the largest block a single holding-register read may ask for.
const MaxReadCount = 125

// Device is the query facade over one power module chain.
//
// Every module/channel-indexed operation validates its arguments against
// the topology provider first (live by default), so hot-swapped modules are
// noticed on the next call.
//
// The connection is borrowed; Device never closes it.
type Device struct {
	conn   transport.Conn
	topo   topology.Provider
	log    *slog.Logger
	writer *protect.Writer

	protectOpts []protect.Option
}

type Option func(*Device)

// WithTopology replaces the live topology provider (e.g. a topology.Cache).
func WithTopology(p topology.Provider) Option {
	return func(d *Device) { d.topo = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.log = l }
}

func WithTiming(t protect.Timing) Option {
	return func(d *Device) { d.protectOpts = append(d.protectOpts, protect.WithTiming(t)) }
}

func WithClock(c protect.Clock) Option {
	return func(d *Device) { d.protectOpts = append(d.protectOpts, protect.WithClock(c)) }
}

func WithDialOnlyModels(models []string) Option {
	return func(d *Device) { d.protectOpts = append(d.protectOpts, protect.WithDialOnlyModels(models)) }
}

// WithObserver forwards protected write state transitions to fn.
func WithObserver(fn func(protect.State)) Option {
	return func(d *Device) { d.protectOpts = append(d.protectOpts, protect.WithObserver(fn)) }
}

func New(conn transport.Conn, opts ...Option) *Device {
	d := &Device{
		conn: conn,
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.topo == nil {
		d.topo = topology.NewLive(conn)
	}

	wopts := append([]protect.Option{
		protect.WithTopology(d.topo),
		protect.WithLogger(d.log),
	}, d.protectOpts...)
	d.writer = protect.New(conn, wopts...)

	return d
}

// ---- TOPOLOGY ----

func (d *Device) ModuleCount() (int, error) {
	n, err := d.topo.ModuleCount()
	if err != nil {
		return 0, fmt.Errorf("device: module count: %w", err)
	}
	return n, nil
}

func (d *Device) ChannelCount(module int) (int, error) {
	if err := topology.ValidateModule(d.topo, module); err != nil {
		return 0, err
	}
	n, err := d.topo.ChannelCount(module)
	if err != nil {
		return 0, fmt.Errorf("device: channel count of module %d: %w", module, err)
	}
	return n, nil
}

// ---- SYSTEM ----

func (d *Device) GlobalStatus() (status.GlobalStatus, error) {
	w, err := register.ReadUint16(d.conn, register.GlobalStatus)
	if err != nil {
		return status.GlobalStatus{}, fmt.Errorf("device: global status: %w", err)
	}
	return status.DecodeGlobal(w), nil
}

// TotalSystemCurrent is the summed load of all channels, in A.
func (d *Device) TotalSystemCurrent() (uint16, error) {
	return d.readSystem("total system current", register.TotalSystemCurrent)
}

func (d *Device) InputVoltage() (Voltage, error) {
	v, err := d.readSystem("input voltage", register.InputVoltage)
	return Voltage(v), err
}

// SumOfNominalCurrents is the sum of every channel's nominal current, in A.
func (d *Device) SumOfNominalCurrents() (uint16, error) {
	return d.readSystem("sum of nominal currents", register.SumNominalCurrents)
}

// MaxBusCycle is the device-internal bus cycle in ms.
func (d *Device) MaxBusCycle() (uint16, error) {
	return d.readSystem("max bus cycle", register.MaxBusCycle)
}

// InternalTemperature in °C.
func (d *Device) InternalTemperature() (int16, error) {
	v, err := register.ReadInt16(d.conn, register.InternalTemperature)
	if err != nil {
		return 0, fmt.Errorf("device: internal temperature: %w", err)
	}
	return v, nil
}

func (d *Device) readSystem(what string, addr uint16) (uint16, error) {
	v, err := register.ReadUint16(d.conn, addr)
	if err != nil {
		return 0, fmt.Errorf("device: %s: %w", what, err)
	}
	return v, nil
}

// ---- PRODUCT NAMES ----

func (d *Device) PowerModuleName() (string, error) {
	return d.readName("power module name", register.PowerModuleName)
}

func (d *Device) QuintName() (string, error) {
	return d.readName("QUINT name", register.QuintName)
}

func (d *Device) ModuleName(module int) (string, error) {
	if err := topology.ValidateModule(d.topo, module); err != nil {
		return "", err
	}
	return d.readName(fmt.Sprintf("module %d name", module), register.ModuleName(module))
}

func (d *Device) readName(what string, addr uint16) (string, error) {
	s, err := register.ReadString32(d.conn, addr)
	if err != nil {
		return "", fmt.Errorf("device: %s: %w", what, err)
	}
	return s, nil
}

// ---- CHANNELS ----

func (d *Device) ChannelStatus(module, channel int) (status.ChannelStatus, error) {
	w, err := d.readChannel("status", register.ChannelStatusBase, module, channel)
	if err != nil {
		return status.ChannelStatus{}, err
	}
	return status.DecodeChannel(w), nil
}

func (d *Device) LoadCurrent(module, channel int) (Current, error) {
	v, err := d.readChannel("load current", register.LoadCurrentBase, module, channel)
	return Current(v), err
}

// NominalCurrent reads the configured nominal current in A.
func (d *Device) NominalCurrent(module, channel int) (uint16, error) {
	return d.readChannel("nominal current", register.NominalCurrentBase, module, channel)
}

// SetNominalCurrent runs the protected write handshake. See protect.Writer.
func (d *Device) SetNominalCurrent(module, channel int, amps uint16) (protect.Result, error) {
	return d.writer.SetNominalCurrent(module, channel, amps)
}

// SetChannel switches a channel on or off.
func (d *Device) SetChannel(module, channel int, on bool) error {
	if err := topology.ValidateChannel(d.topo, module, channel); err != nil {
		return err
	}
	var v uint16
	if on {
		v = 1
	}
	if err := register.WriteUint16(d.conn, register.ChannelControl(module, channel), v); err != nil {
		return fmt.Errorf("device: switch module %d channel %d: %w", module, channel, err)
	}
	d.log.Info("channel switched", "module", module, "channel", channel, "on", on)
	return nil
}

func (d *Device) readChannel(what string, base uint16, module, channel int) (uint16, error) {
	if err := topology.ValidateChannel(d.topo, module, channel); err != nil {
		return 0, err
	}
	v, err := register.ReadUint16(d.conn, register.ChannelAddress(base, module, channel))
	if err != nil {
		return 0, fmt.Errorf("device: %s of module %d channel %d: %w", what, module, channel, err)
	}
	return v, nil
}

// ---- RESETS ----

// ResetApplicationParams restores defaults on the power module and all
// circuit breaker modules.
func (d *Device) ResetApplicationParams() error {
	return d.trigger("reset application params", register.ResetApplicationParams)
}

// ResetChannelErrors clears latched channel errors on all modules.
func (d *Device) ResetChannelErrors() error {
	return d.trigger("reset channel errors", register.ResetChannelErrors)
}

func (d *Device) ResetErrorCounters() error {
	return d.trigger("reset error counters", register.ResetErrorCounters)
}

// ResetQuintParams restores defaults on the QUINT power supply.
func (d *Device) ResetQuintParams() error {
	return d.trigger("reset QUINT params", register.ResetQuintParams)
}

func (d *Device) trigger(what string, addr uint16) error {
	if err := register.WriteUint16(d.conn, addr, 1); err != nil {
		return fmt.Errorf("device: %s: %w", what, err)
	}
	d.log.Info("reset triggered", "reset", what)
	return nil
}

// ---- RAW ACCESS ----

// ReadRaw reads count holding registers starting at addr.
func (d *Device) ReadRaw(addr, count uint16) ([]uint16, error) {
	if count < 1 || count > MaxReadCount {
		return nil, &fault.ValidationError{Field: "count", Value: int(count), Min: 1, Max: MaxReadCount}
	}
	regs, err := d.conn.ReadRegisters(addr, count)
	if err != nil {
		return nil, fmt.Errorf("device: read 0x%04X: %w", addr, err)
	}
	return regs, nil
}

// WriteRaw writes one holding register without any lock handling.
func (d *Device) WriteRaw(addr, value uint16) error {
	if err := d.conn.WriteRegister(addr, value); err != nil {
		return fmt.Errorf("device: write 0x%04X: %w", addr, err)
	}
	d.log.Info("raw register written", "addr", fmt.Sprintf("0x%04X", addr), "value", value)
	return nil
}
