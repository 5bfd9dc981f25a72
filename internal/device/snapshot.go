// internal/device/snapshot.go
package device

import (
	"fmt"

	"github.com/tamzrod/caparoc/internal/register"
	"github.com/tamzrod/caparoc/internal/status"
)

// Snapshot is one full read of the device.
//
// Items that could not be read keep their zero value and have an entry in
// Errors keyed by the item name (see the Item* constants and ModuleItem /
// ChannelItem).
type Snapshot struct {
	PowerModuleName string
	QuintName       string

	Global             status.GlobalStatus
	TotalSystemCurrent uint16 // A
	InputVoltage       Voltage
	SumNominalCurrents uint16 // A
	Temperature        int16  // °C
	MaxBusCycle        uint16 // ms

	Modules []ModuleSnapshot

	Errors map[string]string
}

type ModuleSnapshot struct {
	Module       int
	Name         string
	ChannelCount int
	Channels     []ChannelSnapshot
}

type ChannelSnapshot struct {
	Channel        int
	NominalCurrent uint16 // A
	Load           Current
	Status         status.ChannelStatus
}

// Item names used as Snapshot.Errors keys.
const (
	ItemPowerModuleName    = "power_module_name"
	ItemQuintName          = "quint_name"
	ItemGlobalStatus       = "global_status"
	ItemTotalSystemCurrent = "total_system_current"
	ItemInputVoltage       = "input_voltage"
	ItemSumNominalCurrents = "sum_nominal_currents"
	ItemTemperature        = "temperature"
	ItemMaxBusCycle        = "max_bus_cycle"

	ItemName         = "name"
	ItemChannelCount = "channel_count"
	ItemNominal      = "nominal_current"
	ItemLoad         = "load_current"
	ItemStatus       = "status"
)

func ModuleItem(module int, item string) string {
	return fmt.Sprintf("module.%d.%s", module, item)
}

func ChannelItem(module, channel int, item string) string {
	return fmt.Sprintf("module.%d.channel.%d.%s", module, channel, item)
}

// Failed reports whether item could not be read.
func (s *Snapshot) Failed(item string) bool {
	_, ok := s.Errors[item]
	return ok
}

// OK reports whether every item was read.
func (s *Snapshot) OK() bool { return len(s.Errors) == 0 }

// Snapshot walks the whole device: system values, then modules
// 1..ModuleCount and channels 1..ChannelCount(m).
//
// Per-item read failures are recorded in Snapshot.Errors. Only a failure to
// read the module count is fatal.
func (d *Device) Snapshot() (*Snapshot, error) {
	s := &Snapshot{Errors: make(map[string]string)}

	n, err := d.topo.ModuleCount()
	if err != nil {
		return nil, fmt.Errorf("device: snapshot: module count: %w", err)
	}

	record := func(item string, err error) bool {
		if err != nil {
			s.Errors[item] = err.Error()
			return false
		}
		return true
	}

	// ---- system ----

	if v, err := register.ReadString32(d.conn, register.PowerModuleName); record(ItemPowerModuleName, err) {
		s.PowerModuleName = v
	}
	if v, err := register.ReadString32(d.conn, register.QuintName); record(ItemQuintName, err) {
		s.QuintName = v
	}
	if v, err := register.ReadUint16(d.conn, register.GlobalStatus); record(ItemGlobalStatus, err) {
		s.Global = status.DecodeGlobal(v)
	}
	if v, err := register.ReadUint16(d.conn, register.TotalSystemCurrent); record(ItemTotalSystemCurrent, err) {
		s.TotalSystemCurrent = v
	}
	if v, err := register.ReadUint16(d.conn, register.InputVoltage); record(ItemInputVoltage, err) {
		s.InputVoltage = Voltage(v)
	}
	if v, err := register.ReadUint16(d.conn, register.SumNominalCurrents); record(ItemSumNominalCurrents, err) {
		s.SumNominalCurrents = v
	}
	if v, err := register.ReadInt16(d.conn, register.InternalTemperature); record(ItemTemperature, err) {
		s.Temperature = v
	}
	if v, err := register.ReadUint16(d.conn, register.MaxBusCycle); record(ItemMaxBusCycle, err) {
		s.MaxBusCycle = v
	}

	// ---- modules ----

	if n > register.MaxModules {
		d.log.Warn("device reports more modules than supported", "modules", n, "max", register.MaxModules)
		n = register.MaxModules
	}

	for m := 1; m <= n; m++ {
		ms := ModuleSnapshot{Module: m}

		if v, err := register.ReadString32(d.conn, register.ModuleName(m)); record(ModuleItem(m, ItemName), err) {
			ms.Name = v
		}

		cc, err := d.topo.ChannelCount(m)
		if !record(ModuleItem(m, ItemChannelCount), err) {
			s.Modules = append(s.Modules, ms)
			continue
		}
		if cc > register.ChannelStride {
			cc = register.ChannelStride
		}
		ms.ChannelCount = cc

		for c := 1; c <= cc; c++ {
			cs := ChannelSnapshot{Channel: c}
			if v, err := register.ReadUint16(d.conn, register.NominalCurrent(m, c)); record(ChannelItem(m, c, ItemNominal), err) {
				cs.NominalCurrent = v
			}
			if v, err := register.ReadUint16(d.conn, register.LoadCurrent(m, c)); record(ChannelItem(m, c, ItemLoad), err) {
				cs.Load = Current(v)
			}
			if v, err := register.ReadUint16(d.conn, register.ChannelStatus(m, c)); record(ChannelItem(m, c, ItemStatus), err) {
				cs.Status = status.DecodeChannel(v)
			}
			ms.Channels = append(ms.Channels, cs)
		}

		s.Modules = append(s.Modules, ms)
	}

	if !s.OK() {
		d.log.Debug("snapshot incomplete", "failed_items", len(s.Errors))
	}
	return s, nil
}
