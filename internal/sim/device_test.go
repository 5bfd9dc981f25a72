// internal/sim/device_test.go
package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/register"
)

func TestDevice_Topology(t *testing.T) {
	d := New(DefaultConfig())

	n, err := d.ReadRegister(register.ConnectedModules)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), n)

	ch, err := d.ReadRegister(register.ChannelCount(1))
	require.NoError(t, err)
	assert.Equal(t, uint16(4), ch)

	ch, err = d.ReadRegister(register.ChannelCount(3))
	require.NoError(t, err)
	assert.Equal(t, uint16(0), ch)
}

func TestDevice_RoundTripUnlockedRegister(t *testing.T) {
	d := New(DefaultConfig())

	for _, v := range []uint16{0, 1, 0xFFFF, 0x1234} {
		require.NoError(t, d.WriteRegister(register.ChannelControl(2, 3), v))
		got, err := d.ReadRegister(register.ChannelControl(2, 3))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestDevice_NominalCurrentGatedByBothLocks(t *testing.T) {
	d := New(DefaultConfig())
	addr := register.NominalCurrent(1, 2)

	err := d.WriteRegister(addr, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	// channel unlocked only
	require.NoError(t, d.WriteRegister(register.ChannelLock(1, 2), register.Unlocked))
	assert.ErrorIs(t, d.WriteRegister(addr, 8), ErrLocked)

	// both unlocked
	require.NoError(t, d.WriteRegister(register.GlobalLock, register.Unlocked))
	require.NoError(t, d.WriteRegister(addr, 8))
	assert.Equal(t, uint16(8), d.Register(addr))

	// a different channel stays locked
	assert.ErrorIs(t, d.WriteRegister(register.NominalCurrent(1, 3), 8), ErrLocked)
}

func TestDevice_SumOfNominalCurrentsTracksWrites(t *testing.T) {
	d := New(DefaultConfig())
	assert.Equal(t, uint16(8*6), d.Register(register.SumNominalCurrents))

	d.Set(register.GlobalLock, register.Unlocked)
	d.Set(register.ChannelLock(1, 1), register.Unlocked)
	require.NoError(t, d.WriteRegister(register.NominalCurrent(1, 1), 10))

	assert.Equal(t, uint16(7*6+10), d.Register(register.SumNominalCurrents))
}

func TestDevice_ReadOnlyAndUnknownRejected(t *testing.T) {
	d := New(DefaultConfig())

	err := d.WriteRegister(register.GlobalStatus, 1)
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.True(t, fault.IsTransport(err))

	_, err = d.ReadRegister(0x7777)
	assert.ErrorIs(t, err, ErrIllegalAddress)

	_, err = d.ReadRegister(register.ResetChannelErrors)
	assert.ErrorIs(t, err, ErrWriteOnly)
}

func TestDevice_BlockWriteIsAllOrNothing(t *testing.T) {
	d := New(DefaultConfig())
	base := register.ChannelControl(1, 4)

	// last control register is followed by the (locked) nominal range
	last := register.ChannelControl(register.MaxModules, register.ChannelStride)
	err := d.WriteRegisters(last, []uint16{1, 5})
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, uint16(0), d.Register(last))

	require.NoError(t, d.WriteRegisters(base, []uint16{1, 1}))
	assert.Equal(t, uint16(1), d.Register(base))
	assert.Equal(t, uint16(1), d.Register(base+1))
}

func TestDevice_FaultInjection(t *testing.T) {
	d := New(DefaultConfig())
	addr := register.MaxBusCycle

	d.FailReads(addr, 1)
	_, err := d.ReadRegister(addr)
	assert.ErrorIs(t, err, ErrInjected)
	_, err = d.ReadRegister(addr)
	assert.NoError(t, err)

	ctl := register.ChannelControl(1, 1)
	d.FailWrites(ctl, -1)
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, d.WriteRegister(ctl, 1), ErrInjected)
	}

	d.Set(register.GlobalLock, register.Unlocked)
	d.Set(register.ChannelLock(1, 1), register.Unlocked)
	nom := register.NominalCurrent(1, 1)
	d.DropWrites(nom, 2)
	require.NoError(t, d.WriteRegister(nom, 9))
	require.NoError(t, d.WriteRegister(nom, 9))
	assert.Equal(t, uint16(6), d.Register(nom))
	require.NoError(t, d.WriteRegister(nom, 9))
	assert.Equal(t, uint16(9), d.Register(nom))
}

func TestDevice_ResetChannelErrorsClearsStatus(t *testing.T) {
	d := New(DefaultConfig())
	d.SetChannelStatus(2, 1, 0x06)
	d.SetChannelStatus(1, 3, 0x01)

	assert.Equal(t, uint16(0x0C), d.Register(register.GlobalStatus))

	require.NoError(t, d.WriteRegister(register.ResetChannelErrors, 1))
	assert.Equal(t, uint16(0), d.Register(register.ChannelStatus(2, 1)))
	assert.Equal(t, uint16(0), d.Register(register.GlobalStatus))
}

func TestDevice_ResetApplicationParamsRestoresNominal(t *testing.T) {
	d := New(DefaultConfig())
	d.Set(register.NominalCurrent(2, 2), 3)

	require.NoError(t, d.WriteRegister(register.ResetApplicationParams, 1))
	assert.Equal(t, uint16(6), d.Register(register.NominalCurrent(2, 2)))
}

func TestDevice_HotSwapModules(t *testing.T) {
	d := New(DefaultConfig())
	d.SetModules([]ModuleConfig{{Name: "CAPAROC E1 12-24DC/1-10A", Channels: 1, NominalCurrent: 2}})

	assert.Equal(t, uint16(1), d.Register(register.ConnectedModules))
	assert.Equal(t, uint16(1), d.Register(register.ChannelCount(1)))
	assert.Equal(t, uint16(0), d.Register(register.ChannelCount(2)))
	assert.Equal(t, uint16(0), d.Register(register.NominalCurrent(1, 2)))

	name, err := register.ReadString32(d, register.ModuleName(1))
	require.NoError(t, err)
	assert.Equal(t, "CAPAROC E1 12-24DC/1-10A", name)
}

func TestDevice_LoadCurrentDrivesTotal(t *testing.T) {
	d := New(DefaultConfig())
	d.Set(register.LoadCurrent(1, 1), 2500)
	d.Set(register.LoadCurrent(2, 4), 1600)

	assert.Equal(t, uint16(4), d.Register(register.TotalSystemCurrent))
}
