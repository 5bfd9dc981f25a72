// internal/register/address.go
package register

// Address maps (module, channel) onto a flat register address inside the
// range starting at base: base + (module-1)*stride + (channel-1).
//
// No bounds checking. Callers validate module/channel against live
// topology first.
func Address(base, stride uint16, module, channel int) uint16 {
	return base + uint16(module-1)*stride + uint16(channel-1)
}

// ChannelAddress is Address over a module/channel range with ChannelStride.
func ChannelAddress(base uint16, module, channel int) uint16 {
	return Address(base, ChannelStride, module, channel)
}

func ChannelStatus(module, channel int) uint16 {
	return ChannelAddress(ChannelStatusBase, module, channel)
}

func LoadCurrent(module, channel int) uint16 {
	return ChannelAddress(LoadCurrentBase, module, channel)
}

func ChannelControl(module, channel int) uint16 {
	return ChannelAddress(ChannelControlBase, module, channel)
}

func NominalCurrent(module, channel int) uint16 {
	return ChannelAddress(NominalCurrentBase, module, channel)
}

func ChannelLock(module, channel int) uint16 {
	return ChannelAddress(ChannelLockBase, module, channel)
}

// ModuleName is the first register of a module's STRING32 product name.
func ModuleName(module int) uint16 {
	return Address(ModuleNameBase, NameStride, module, 1)
}

// ChannelCount is the register holding the channel count of a module.
func ChannelCount(module int) uint16 {
	return Address(ChannelCountBase, 1, module, 1)
}
