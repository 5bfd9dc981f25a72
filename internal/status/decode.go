// internal/status/decode.go
package status

// GlobalStatus is the decoded system-wide status word.
type GlobalStatus struct {
	Undervoltage           bool
	Overvoltage            bool
	CumulativeChannelError bool
	CumulativeWarning80    bool
	SystemCurrentTooHigh   bool
}

// ChannelStatus is the decoded status word of one channel.
type ChannelStatus struct {
	Warning80            bool
	Overload             bool
	ShortCircuit         bool
	HardwareError        bool
	VoltageError         bool
	ModuleCurrentTooHigh bool
	SystemCurrentTooHigh bool
}

// DecodeGlobal decodes a global status word. Reserved bits are dropped.
// Total: every input decodes.
func DecodeGlobal(w uint16) GlobalStatus {
	return GlobalStatus{
		Undervoltage:           bit(w, GlobalBitUndervoltage),
		Overvoltage:            bit(w, GlobalBitOvervoltage),
		CumulativeChannelError: bit(w, GlobalBitChannelError),
		CumulativeWarning80:    bit(w, GlobalBitWarning80),
		SystemCurrentTooHigh:   bit(w, GlobalBitSystemCurrent),
	}
}

// DecodeChannel decodes a channel status word. Reserved bits are dropped.
func DecodeChannel(w uint16) ChannelStatus {
	return ChannelStatus{
		Warning80:            bit(w, ChannelBitWarning80),
		Overload:             bit(w, ChannelBitOverload),
		ShortCircuit:         bit(w, ChannelBitShortCircuit),
		HardwareError:        bit(w, ChannelBitHardwareError),
		VoltageError:         bit(w, ChannelBitVoltageError),
		ModuleCurrentTooHigh: bit(w, ChannelBitModuleCurrent),
		SystemCurrentTooHigh: bit(w, ChannelBitSystemCurrent),
	}
}

// Raw re-encodes the defined flags.
func (s GlobalStatus) Raw() uint16 {
	var w uint16
	w |= flag(s.Undervoltage, GlobalBitUndervoltage)
	w |= flag(s.Overvoltage, GlobalBitOvervoltage)
	w |= flag(s.CumulativeChannelError, GlobalBitChannelError)
	w |= flag(s.CumulativeWarning80, GlobalBitWarning80)
	w |= flag(s.SystemCurrentTooHigh, GlobalBitSystemCurrent)
	return w
}

func (s ChannelStatus) Raw() uint16 {
	var w uint16
	w |= flag(s.Warning80, ChannelBitWarning80)
	w |= flag(s.Overload, ChannelBitOverload)
	w |= flag(s.ShortCircuit, ChannelBitShortCircuit)
	w |= flag(s.HardwareError, ChannelBitHardwareError)
	w |= flag(s.VoltageError, ChannelBitVoltageError)
	w |= flag(s.ModuleCurrentTooHigh, ChannelBitModuleCurrent)
	w |= flag(s.SystemCurrentTooHigh, ChannelBitSystemCurrent)
	return w
}

func (s GlobalStatus) OK() bool  { return s.Raw() == 0 }
func (s ChannelStatus) OK() bool { return s.Raw() == 0 }

var globalNames = [...]string{
	GlobalBitUndervoltage:  "UNDERVOLTAGE",
	GlobalBitOvervoltage:   "OVERVOLTAGE",
	GlobalBitChannelError:  "CHANNEL_ERROR",
	GlobalBitWarning80:     "80%_WARNING",
	GlobalBitSystemCurrent: "SYSTEM_CURRENT_HIGH",
}

var channelNames = [...]string{
	ChannelBitWarning80:     "80%_WARNING",
	ChannelBitOverload:      "OVERLOAD",
	ChannelBitShortCircuit:  "SHORT_CIRCUIT",
	ChannelBitHardwareError: "HW_ERROR",
	ChannelBitVoltageError:  "VOLTAGE_ERROR",
	ChannelBitModuleCurrent: "MODULE_CURRENT_HIGH",
	ChannelBitSystemCurrent: "SYSTEM_CURRENT_HIGH",
}

// Active lists the names of all set flags in bit order.
func (s GlobalStatus) Active() []string { return active(s.Raw(), globalNames[:]) }

func (s ChannelStatus) Active() []string { return active(s.Raw(), channelNames[:]) }

// GlobalFlagNames returns the flag names indexed by bit position.
func GlobalFlagNames() []string { return append([]string(nil), globalNames[:]...) }

// ChannelFlagNames returns the flag names indexed by bit position.
func ChannelFlagNames() []string { return append([]string(nil), channelNames[:]...) }

// ---- helpers ----

func bit(w uint16, pos int) bool {
	return w&(1<<pos) != 0
}

func flag(set bool, pos int) uint16 {
	if set {
		return 1 << pos
	}
	return 0
}

func active(w uint16, names []string) []string {
	var out []string
	for i, n := range names {
		if bit(w, i) {
			out = append(out, n)
		}
	}
	return out
}
