// internal/sim/device.go
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/register"
	"github.com/tamzrod/caparoc/internal/status"
)

var (
	ErrIllegalAddress = errors.New("illegal data address")
	ErrReadOnly       = errors.New("register is read-only")
	ErrWriteOnly      = errors.New("register is write-only")
	ErrLocked         = errors.New("nominal current is locked")
	ErrInjected       = errors.New("injected fault")
)

// ModuleConfig describes one simulated circuit breaker module.
type ModuleConfig struct {
	Name           string
	Channels       int
	NominalCurrent uint16 // default nominal current for every channel, A
}

// Config describes a simulated device.
type Config struct {
	PowerModuleName string
	QuintName       string
	Modules         []ModuleConfig
	BusCycleMs      uint16
	InputVoltage    uint16 // 10 mV units
	Temperature     int16
}

// Write is one accepted register write, in the order received.
type Write struct {
	Addr  uint16
	Value uint16
}

// Device is an in-memory register map that behaves like the real device:
// topology registers, status words, and nominal current gated by the
// channel and global lock registers.
//
// Device implements transport.Conn and is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	cfg    Config
	regs   map[uint16]uint16
	access map[uint16]register.Access

	failReads  map[uint16]int
	failWrites map[uint16]int
	dropWrites map[uint16]int

	writes []Write
}

// New builds a device with all locks engaged.
func New(cfg Config) *Device {
	d := &Device{
		cfg:        cfg,
		regs:       make(map[uint16]uint16),
		access:     make(map[uint16]register.Access),
		failReads:  make(map[uint16]int),
		failWrites: make(map[uint16]int),
		dropWrites: make(map[uint16]int),
	}

	for _, in := range register.Catalogue() {
		for i := uint16(0); i < in.Registers; i++ {
			d.access[in.Address+i] = in.Access
			d.regs[in.Address+i] = 0
		}
	}

	d.regs[register.GlobalLock] = register.Locked
	for m := 1; m <= register.MaxModules; m++ {
		for c := 1; c <= register.ChannelStride; c++ {
			d.regs[register.ChannelLock(m, c)] = register.Locked
		}
	}

	d.regs[register.MaxBusCycle] = cfg.BusCycleMs
	d.regs[register.InputVoltage] = cfg.InputVoltage
	d.regs[register.InternalTemperature] = uint16(cfg.Temperature)
	d.putString(register.PowerModuleName, cfg.PowerModuleName)
	d.putString(register.QuintName, cfg.QuintName)
	d.setModulesLocked(cfg.Modules)

	return d
}

// DefaultConfig is a power module with two four-channel modules.
func DefaultConfig() Config {
	return Config{
		PowerModuleName: "CAPAROC PM MB",
		QuintName:       "QUINT4-PS/1AC/24DC/20",
		Modules: []ModuleConfig{
			{Name: "CAPAROC E4 12-24DC/1-10A", Channels: 4, NominalCurrent: 6},
			{Name: "CAPAROC E4 12-24DC/1-10A", Channels: 4, NominalCurrent: 6},
		},
		BusCycleMs:   100,
		InputVoltage: 2400,
		Temperature:  35,
	}
}

// ---- transport.Conn ----

func (d *Device) ReadRegister(addr uint16) (uint16, error) {
	regs, err := d.ReadRegisters(addr, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

func (d *Device) ReadRegisters(addr, count uint16) ([]uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if consume(d.failReads, addr) {
		return nil, &fault.TransportError{Op: "read", Addr: addr, Err: ErrInjected}
	}

	out := make([]uint16, count)
	for i := uint16(0); i < count; i++ {
		a := addr + i
		acc, ok := d.access[a]
		if !ok {
			return nil, &fault.TransportError{Op: "read", Addr: addr, Err: ErrIllegalAddress}
		}
		if acc == register.WriteOnly {
			return nil, &fault.TransportError{Op: "read", Addr: addr, Err: ErrWriteOnly}
		}
		out[i] = d.regs[a]
	}
	return out, nil
}

func (d *Device) WriteRegister(addr, value uint16) error {
	return d.WriteRegisters(addr, []uint16{value})
}

// WriteRegisters is all-or-nothing: every register is checked before any
// is stored.
func (d *Device) WriteRegisters(addr uint16, values []uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if consume(d.failWrites, addr) {
		return &fault.TransportError{Op: "write", Addr: addr, Err: ErrInjected}
	}

	for i := range values {
		a := addr + uint16(i)
		if err := d.checkWrite(a); err != nil {
			return &fault.TransportError{Op: "write", Addr: a, Err: err}
		}
	}

	for i, v := range values {
		a := addr + uint16(i)
		d.writes = append(d.writes, Write{Addr: a, Value: v})
		if consume(d.dropWrites, a) {
			continue
		}
		d.apply(a, v)
	}
	return nil
}

func (d *Device) checkWrite(a uint16) error {
	acc, ok := d.access[a]
	if !ok {
		return ErrIllegalAddress
	}
	if acc == register.ReadOnly {
		return ErrReadOnly
	}
	if m, c, ok := channelOf(register.NominalCurrentBase, a); ok {
		if d.regs[register.GlobalLock] != register.Unlocked ||
			d.regs[register.ChannelLock(m, c)] != register.Unlocked {
			return ErrLocked
		}
	}
	return nil
}

func (d *Device) apply(a, v uint16) {
	switch a {
	case register.ResetChannelErrors:
		if v > 0 {
			d.clearChannelErrors()
		}
		return
	case register.ResetApplicationParams:
		if v > 0 {
			d.resetNominalCurrents()
		}
		return
	case register.ResetErrorCounters, register.ResetQuintParams:
		return
	}

	d.regs[a] = v
	if _, _, ok := channelOf(register.NominalCurrentBase, a); ok {
		d.updateSums()
	}
}

// ---- inspection / fault injection ----

// Register returns the stored value of addr without side effects.
func (d *Device) Register(addr uint16) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[addr]
}

// Set stores value at addr bypassing access checks and locks.
func (d *Device) Set(addr, value uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.regs[addr] = value
	if _, _, ok := channelOf(register.LoadCurrentBase, addr); ok {
		d.updateSums()
	}
}

// Writes returns every accepted write so far.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

// FailReads makes the next n reads starting at addr fail. n < 0 fails forever.
func (d *Device) FailReads(addr uint16, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failReads[addr] = n
}

// FailWrites makes the next n writes starting at addr fail. n < 0 fails forever.
func (d *Device) FailWrites(addr uint16, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWrites[addr] = n
}

// DropWrites makes the next n writes to addr succeed on the wire without
// being stored. n < 0 drops forever.
func (d *Device) DropWrites(addr uint16, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropWrites[addr] = n
}

// SetModules replaces the connected modules (hot swap).
func (d *Device) SetModules(mods []ModuleConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setModulesLocked(mods)
}

// SetChannelStatus stores a raw channel status word and refreshes the
// cumulative bits of the global status word.
func (d *Device) SetChannelStatus(module, channel int, w uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.regs[register.ChannelStatus(module, channel)] = w
	d.refreshGlobal()
}

// ---- internal state ----

func (d *Device) setModulesLocked(mods []ModuleConfig) {
	if len(mods) > register.MaxModules {
		mods = mods[:register.MaxModules]
	}
	d.cfg.Modules = mods
	d.regs[register.ConnectedModules] = uint16(len(mods))

	for m := 1; m <= register.MaxModules; m++ {
		var mc ModuleConfig
		if m <= len(mods) {
			mc = mods[m-1]
		}
		d.regs[register.ChannelCount(m)] = uint16(mc.Channels)
		d.putString(register.ModuleName(m), mc.Name)
		for c := 1; c <= register.ChannelStride; c++ {
			var nominal uint16
			if c <= mc.Channels {
				nominal = mc.NominalCurrent
			}
			d.regs[register.NominalCurrent(m, c)] = nominal
		}
	}
	d.updateSums()
}

func (d *Device) putString(addr uint16, s string) {
	for i, r := range register.EncodeString32(s) {
		d.regs[addr+uint16(i)] = r
	}
}

func (d *Device) resetNominalCurrents() {
	for m, mc := range d.cfg.Modules {
		for c := 1; c <= mc.Channels; c++ {
			d.regs[register.NominalCurrent(m+1, c)] = mc.NominalCurrent
		}
	}
	d.updateSums()
}

func (d *Device) clearChannelErrors() {
	for m := 1; m <= register.MaxModules; m++ {
		for c := 1; c <= register.ChannelStride; c++ {
			d.regs[register.ChannelStatus(m, c)] = 0
		}
	}
	d.refreshGlobal()
}

// updateSums recomputes the system-wide sums (nominal in A, load in A).
func (d *Device) updateSums() {
	var nominal uint32
	var loadMA uint32
	for m := 1; m <= register.MaxModules; m++ {
		for c := 1; c <= register.ChannelStride; c++ {
			nominal += uint32(d.regs[register.NominalCurrent(m, c)])
			loadMA += uint32(d.regs[register.LoadCurrent(m, c)])
		}
	}
	d.regs[register.SumNominalCurrents] = clamp16(nominal)
	d.regs[register.TotalSystemCurrent] = clamp16(loadMA / 1000)
}

// refreshGlobal derives the cumulative global bits from the channel words.
func (d *Device) refreshGlobal() {
	var anyErr, anyWarn bool
	for m := 1; m <= register.MaxModules; m++ {
		for c := 1; c <= register.ChannelStride; c++ {
			w := d.regs[register.ChannelStatus(m, c)]
			if w&(1<<status.ChannelBitWarning80) != 0 {
				anyWarn = true
			}
			if w&status.ChannelDefinedMask&^(1<<status.ChannelBitWarning80) != 0 {
				anyErr = true
			}
		}
	}

	g := d.regs[register.GlobalStatus] &^ (1<<status.GlobalBitChannelError | 1<<status.GlobalBitWarning80)
	if anyErr {
		g |= 1 << status.GlobalBitChannelError
	}
	if anyWarn {
		g |= 1 << status.GlobalBitWarning80
	}
	d.regs[register.GlobalStatus] = g
}

// ---- helpers ----

// channelOf reports the module/channel of a within the channel range at base.
func channelOf(base, a uint16) (module, channel int, ok bool) {
	if a < base || a >= base+register.MaxModules*register.ChannelStride {
		return 0, 0, false
	}
	off := int(a - base)
	return off/register.ChannelStride + 1, off%register.ChannelStride + 1, true
}

// consume decrements a fault counter and reports whether it fired.
func consume(m map[uint16]int, addr uint16) bool {
	n, ok := m[addr]
	if !ok || n == 0 {
		return false
	}
	if n > 0 {
		m[addr] = n - 1
	}
	return true
}

func clamp16(v uint32) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

func (w Write) String() string {
	return fmt.Sprintf("0x%04X=%d", w.Addr, w.Value)
}
