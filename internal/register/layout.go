// internal/register/layout.go
package register

// Device register layout.
// These values are fixed by the device firmware and MUST NOT be configurable.

// ---- GEOMETRY ----

// MaxModules is the hard upper bound of modules in one device chain.
const MaxModules = 16

// ChannelStride is the number of registers per module in every
// module/channel-indexed range.
const ChannelStride = 4

// MaxChannels is the hard upper bound of channels on one module.
const MaxChannels = ChannelStride

// NameStride is the distance between consecutive module product-name fields.
const NameStride = 0x10

// String32Registers is the number of registers holding one STRING32 field.
const String32Registers = 16

// ---- CONTROL / RESET (write-only, any value > 0 triggers) ----

const (
	ResetApplicationParams uint16 = 0x0010
	ResetChannelErrors     uint16 = 0x0011
	ResetErrorCounters     uint16 = 0x0012
	ResetQuintParams       uint16 = 0x0020
)

// ---- PRODUCT INFORMATION ----

const (
	PowerModuleName uint16 = 0x1000
	ModuleNameBase  uint16 = 0x1010
	QuintName       uint16 = 0x1110
)

// ---- TOPOLOGY ----

const (
	ConnectedModules uint16 = 0x2000
	ChannelCountBase uint16 = 0x2001
)

// ---- SYSTEM STATUS / MEASUREMENTS ----

const (
	GlobalStatus        uint16 = 0x6000
	TotalSystemCurrent  uint16 = 0x6001
	InputVoltage        uint16 = 0x6002
	SumNominalCurrents  uint16 = 0x6005
	MaxBusCycle         uint16 = 0x6006
	InternalTemperature uint16 = 0x6009
	ChannelStatusBase   uint16 = 0x6010
	LoadCurrentBase     uint16 = 0x6050
)

// ---- CONFIGURATION ----

const (
	GlobalLock         uint16 = 0xC001
	ChannelControlBase uint16 = 0xC010
	NominalCurrentBase uint16 = 0xC050
	ChannelLockBase    uint16 = 0xC090
)

// ---- LOCK VALUES ----

const (
	Unlocked uint16 = 0
	Locked   uint16 = 1
)
