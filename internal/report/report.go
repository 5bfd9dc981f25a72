// internal/report/report.go
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/tamzrod/caparoc/internal/device"
	"github.com/tamzrod/caparoc/internal/status"
)

// Global formats a global status word as its active flag names, or OK.
func Global(s status.GlobalStatus) string {
	return flags(s.Active())
}

// Channel formats a channel status word as its active flag names, or OK.
func Channel(s status.ChannelStatus) string {
	return flags(s.Active())
}

func flags(active []string) string {
	if len(active) == 0 {
		return "OK"
	}
	return strings.Join(active, " ")
}

// ChannelLine formats one channel as "load A / nominal A [flags]".
// Items missing from the snapshot are rendered as "?" or omitted.
func ChannelLine(s *device.Snapshot, module int, ch device.ChannelSnapshot) string {
	var b strings.Builder

	nominalOK := !s.Failed(device.ChannelItem(module, ch.Channel, device.ItemNominal))
	loadOK := !s.Failed(device.ChannelItem(module, ch.Channel, device.ItemLoad))

	switch {
	case nominalOK && loadOK:
		fmt.Fprintf(&b, "%.1f A / %d A", ch.Load.Amperes(), ch.NominalCurrent)
	case nominalOK:
		fmt.Fprintf(&b, "? A / %d A", ch.NominalCurrent)
	default:
		b.WriteString("Error reading currents")
	}

	if !s.Failed(device.ChannelItem(module, ch.Channel, device.ItemStatus)) {
		fmt.Fprintf(&b, " [%s]", Channel(ch.Status))
	}
	return b.String()
}

// DeviceInfo renders the device information dump.
func DeviceInfo(w io.Writer, s *device.Snapshot) error {
	var b strings.Builder

	if !s.Failed(device.ItemPowerModuleName) {
		fmt.Fprintf(&b, "Power Module: %s\n", s.PowerModuleName)
	}

	// ---- system ----

	b.WriteString("\n=== System Status ===\n")
	if !s.Failed(device.ItemGlobalStatus) {
		fmt.Fprintf(&b, "Global Status: %s\n", Global(s.Global))
	}
	if !s.Failed(device.ItemTotalSystemCurrent) {
		fmt.Fprintf(&b, "Total System Current: %d A\n", s.TotalSystemCurrent)
	}
	if !s.Failed(device.ItemInputVoltage) {
		fmt.Fprintf(&b, "Input Voltage: %.2f V\n", s.InputVoltage.Volts())
	}
	if !s.Failed(device.ItemSumNominalCurrents) {
		fmt.Fprintf(&b, "Sum of Nominal Currents: %d A\n", s.SumNominalCurrents)
	}
	if !s.Failed(device.ItemTemperature) {
		fmt.Fprintf(&b, "Internal Temperature: %d °C\n", s.Temperature)
	}
	if !s.Failed(device.ItemMaxBusCycle) {
		fmt.Fprintf(&b, "Max Bus Cycle: %d ms\n", s.MaxBusCycle)
	}

	// ---- modules ----

	fmt.Fprintf(&b, "\n=== Connected Modules: %d ===\n", len(s.Modules))
	for _, m := range s.Modules {
		if s.Failed(device.ModuleItem(m.Module, device.ItemName)) {
			fmt.Fprintf(&b, "Module %d: Error reading product name\n", m.Module)
			continue
		}
		if s.Failed(device.ModuleItem(m.Module, device.ItemChannelCount)) {
			fmt.Fprintf(&b, "Module %d: %s (Error reading channel count)\n", m.Module, m.Name)
			continue
		}
		fmt.Fprintf(&b, "Module %d: %s (%d channels)\n", m.Module, m.Name, m.ChannelCount)
		for _, ch := range m.Channels {
			fmt.Fprintf(&b, "  Channel %d: %s\n", ch.Channel, ChannelLine(s, m.Module, ch))
		}
	}

	if !s.Failed(device.ItemQuintName) {
		fmt.Fprintf(&b, "\nQUINT Power Supply: %s\n", s.QuintName)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
