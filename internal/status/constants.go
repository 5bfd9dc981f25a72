// internal/status/constants.go
package status

// Status word bit layout.
// These values are fixed by the device firmware and MUST NOT be configurable.

// ---- GLOBAL STATUS WORD (0x6000) ----

// GlobalBitUndervoltage is set while the input voltage is below range.
const GlobalBitUndervoltage = 0

// GlobalBitOvervoltage is set while the input voltage is above range.
const GlobalBitOvervoltage = 1

// GlobalBitChannelError is the OR of all channel error conditions.
const GlobalBitChannelError = 2

// GlobalBitWarning80 is the OR of all channel 80% warnings.
const GlobalBitWarning80 = 3

// GlobalBitSystemCurrent is set while the total system current is too high.
const GlobalBitSystemCurrent = 4

// ---- CHANNEL STATUS WORD (0x6010..) ----

const (
	ChannelBitWarning80     = 0
	ChannelBitOverload      = 1
	ChannelBitShortCircuit  = 2
	ChannelBitHardwareError = 3
	ChannelBitVoltageError  = 4
	ChannelBitModuleCurrent = 5
	ChannelBitSystemCurrent = 6
)

// ChannelDefinedMask covers every defined channel status bit (0..6).
const ChannelDefinedMask uint16 = 0x7F
