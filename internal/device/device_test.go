// internal/device/device_test.go
package device

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/protect"
	"github.com/tamzrod/caparoc/internal/register"
	"github.com/tamzrod/caparoc/internal/sim"
	"github.com/tamzrod/caparoc/internal/status"
	"github.com/tamzrod/caparoc/internal/topology"
)

type noSleep struct{ now time.Time }

func (c *noSleep) Sleep(d time.Duration) { c.now = c.now.Add(d) }
func (c *noSleep) Now() time.Time        { return c.now }

func newTestDevice(t *testing.T, opts ...Option) (*Device, *sim.Device) {
	t.Helper()
	dev := sim.New(sim.DefaultConfig())
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(&noSleep{}),
	}
	return New(dev, append(base, opts...)...), dev
}

func TestDevice_SystemValues(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.Set(register.LoadCurrent(1, 1), 2500)
	dev.Set(register.LoadCurrent(2, 3), 1500)

	total, err := d.TotalSystemCurrent()
	require.NoError(t, err)
	assert.Equal(t, uint16(4), total)

	v, err := d.InputVoltage()
	require.NoError(t, err)
	assert.InDelta(t, 24.0, v.Volts(), 1e-9)

	sum, err := d.SumOfNominalCurrents()
	require.NoError(t, err)
	assert.Equal(t, uint16(48), sum)

	temp, err := d.InternalTemperature()
	require.NoError(t, err)
	assert.Equal(t, int16(35), temp)

	cycle, err := d.MaxBusCycle()
	require.NoError(t, err)
	assert.Equal(t, uint16(100), cycle)
}

func TestDevice_NegativeTemperature(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.Set(register.InternalTemperature, uint16(0xFFF6))

	temp, err := d.InternalTemperature()
	require.NoError(t, err)
	assert.Equal(t, int16(-10), temp)
}

func TestDevice_Names(t *testing.T) {
	d, _ := newTestDevice(t)

	pm, err := d.PowerModuleName()
	require.NoError(t, err)
	assert.Equal(t, "CAPAROC PM MB", pm)

	q, err := d.QuintName()
	require.NoError(t, err)
	assert.Equal(t, "QUINT4-PS/1AC/24DC/20", q)

	m, err := d.ModuleName(2)
	require.NoError(t, err)
	assert.Equal(t, "CAPAROC E4 12-24DC/1-10A", m)

	_, err = d.ModuleName(3)
	assert.True(t, fault.IsValidation(err))
}

func TestDevice_ChannelReadsValidateTopology(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.Set(register.LoadCurrent(1, 2), 3700)
	dev.SetChannelStatus(1, 2, 1<<status.ChannelBitOverload)

	load, err := d.LoadCurrent(1, 2)
	require.NoError(t, err)
	assert.Equal(t, Current(3700), load)
	assert.InDelta(t, 3.7, load.Amperes(), 1e-9)

	st, err := d.ChannelStatus(1, 2)
	require.NoError(t, err)
	assert.True(t, st.Overload)
	assert.False(t, st.ShortCircuit)

	g, err := d.GlobalStatus()
	require.NoError(t, err)
	assert.True(t, g.CumulativeChannelError)

	_, err = d.ChannelStatus(1, 5)
	var ve *fault.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 4, ve.Max)

	_, err = d.NominalCurrent(0, 1)
	assert.True(t, fault.IsValidation(err))
}

func TestDevice_ChannelCount(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.SetModules([]sim.ModuleConfig{
		{Name: "a", Channels: 4},
		{Name: "b", Channels: 2},
	})

	n, err := d.ModuleCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c, err := d.ChannelCount(2)
	require.NoError(t, err)
	assert.Equal(t, 2, c)

	_, err = d.ChannelCount(3)
	assert.True(t, fault.IsValidation(err))
}

func TestDevice_SetNominalCurrentRoundTrip(t *testing.T) {
	var states []protect.State
	d, dev := newTestDevice(t, WithObserver(func(s protect.State) { states = append(states, s) }))

	res, err := d.SetNominalCurrent(2, 2, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)

	got, err := d.NominalCurrent(2, 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(9), got)

	assert.Equal(t, register.Locked, dev.Register(register.GlobalLock))
	assert.Equal(t, protect.StateDone, states[len(states)-1])
}

func TestDevice_SetNominalCurrentWithCustomTiming(t *testing.T) {
	dev := sim.New(sim.DefaultConfig())
	dev.DropWrites(register.NominalCurrent(1, 1), -1)
	d := New(dev,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(&noSleep{}),
		WithTiming(protect.Timing{Attempts: 2}),
	)

	_, err := d.SetNominalCurrent(1, 1, 3)
	var verr *fault.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Attempts)
}

func TestDevice_WithCachedTopology(t *testing.T) {
	dev := sim.New(sim.DefaultConfig())
	cache := topology.NewCache(topology.NewLive(dev))
	d := New(dev, WithTopology(cache), WithClock(&noSleep{}))

	_, err := d.LoadCurrent(2, 1)
	require.NoError(t, err)

	// unplug module 2; cache still believes it is there
	dev.SetModules([]sim.ModuleConfig{{Name: "a", Channels: 4}})
	_, err = d.LoadCurrent(2, 1)
	assert.NoError(t, err)

	cache.Invalidate()
	_, err = d.LoadCurrent(2, 1)
	assert.True(t, fault.IsValidation(err))
}

func TestDevice_SetChannel(t *testing.T) {
	d, dev := newTestDevice(t)

	require.NoError(t, d.SetChannel(1, 3, true))
	assert.Equal(t, uint16(1), dev.Register(register.ChannelControl(1, 3)))

	require.NoError(t, d.SetChannel(1, 3, false))
	assert.Equal(t, uint16(0), dev.Register(register.ChannelControl(1, 3)))

	assert.True(t, fault.IsValidation(d.SetChannel(1, 5, true)))
}

func TestDevice_ReportedCountsNeverAliasOtherRegisters(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.Set(register.ChannelCount(1), 5)
	dev.Set(register.ConnectedModules, 17)
	before := len(dev.Writes())

	assert.True(t, fault.IsValidation(d.SetChannel(1, 5, true)))
	_, err := d.SetNominalCurrent(1, 5, 3)
	assert.True(t, fault.IsValidation(err))
	assert.Len(t, dev.Writes(), before)
	assert.Equal(t, uint16(0), dev.Register(register.ChannelControl(2, 1)))

	_, err = d.ModuleName(17)
	assert.True(t, fault.IsValidation(err))
}

func TestDevice_Resets(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.SetChannelStatus(2, 1, 1<<status.ChannelBitShortCircuit)

	require.NoError(t, d.ResetChannelErrors())
	assert.Equal(t, uint16(0), dev.Register(register.ChannelStatus(2, 1)))

	require.NoError(t, d.ResetErrorCounters())
	require.NoError(t, d.ResetQuintParams())

	_, err := d.SetNominalCurrent(1, 1, 2)
	require.NoError(t, err)
	require.NoError(t, d.ResetApplicationParams())
	assert.Equal(t, uint16(6), dev.Register(register.NominalCurrent(1, 1)))

	writes := dev.Writes()
	assert.Contains(t, writes, sim.Write{Addr: register.ResetQuintParams, Value: 1})
}

func TestDevice_RawAccess(t *testing.T) {
	d, _ := newTestDevice(t)

	regs, err := d.ReadRaw(register.ConnectedModules, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2, 4, 4}, regs)

	require.NoError(t, d.WriteRaw(register.ChannelControl(2, 4), 1))
	regs, err = d.ReadRaw(register.ChannelControl(2, 4), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1}, regs)

	_, err = d.ReadRaw(0x6000, 0)
	assert.True(t, fault.IsValidation(err))
	_, err = d.ReadRaw(0x6000, MaxReadCount+1)
	assert.True(t, fault.IsValidation(err))

	// nominal current stays protected against raw writes
	err = d.WriteRaw(register.NominalCurrent(1, 1), 9)
	assert.True(t, fault.IsTransport(err))
	assert.ErrorIs(t, err, sim.ErrLocked)
}

func TestDevice_TransportErrorsAreWrapped(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.FailReads(register.InputVoltage, 1)

	_, err := d.InputVoltage()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device: input voltage")
	assert.True(t, fault.IsTransport(err))
	assert.Equal(t, fault.CodeTransport, fault.Code(err))
}

func TestSnapshot_FullWalk(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.Set(register.LoadCurrent(2, 4), 1200)
	dev.SetChannelStatus(2, 4, 1<<status.ChannelBitWarning80)

	s, err := d.Snapshot()
	require.NoError(t, err)
	assert.True(t, s.OK())

	assert.Equal(t, "CAPAROC PM MB", s.PowerModuleName)
	assert.Equal(t, "QUINT4-PS/1AC/24DC/20", s.QuintName)
	assert.Equal(t, uint16(48), s.SumNominalCurrents)
	assert.True(t, s.Global.CumulativeWarning80)

	require.Len(t, s.Modules, 2)
	m2 := s.Modules[1]
	assert.Equal(t, 2, m2.Module)
	assert.Equal(t, 4, m2.ChannelCount)
	require.Len(t, m2.Channels, 4)

	ch := m2.Channels[3]
	assert.Equal(t, 4, ch.Channel)
	assert.Equal(t, Current(1200), ch.Load)
	assert.Equal(t, uint16(6), ch.NominalCurrent)
	assert.True(t, ch.Status.Warning80)
}

func TestSnapshot_PerItemFailuresAreRecorded(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.FailReads(register.QuintName, 1)
	dev.FailReads(register.ChannelCount(2), 1)
	dev.FailReads(register.LoadCurrent(1, 3), 1)

	s, err := d.Snapshot()
	require.NoError(t, err)
	assert.False(t, s.OK())

	assert.True(t, s.Failed(ItemQuintName))
	assert.True(t, s.Failed(ModuleItem(2, ItemChannelCount)))
	assert.True(t, s.Failed(ChannelItem(1, 3, ItemLoad)))
	assert.False(t, s.Failed(ChannelItem(1, 3, ItemNominal)))
	assert.Len(t, s.Errors, 3)

	require.Len(t, s.Modules, 2)
	assert.Empty(t, s.Modules[1].Channels)
	assert.Equal(t, "CAPAROC E4 12-24DC/1-10A", s.Modules[1].Name)
}

func TestSnapshot_ModuleCountFailureIsFatal(t *testing.T) {
	d, dev := newTestDevice(t)
	dev.FailReads(register.ConnectedModules, 1)

	s, err := d.Snapshot()
	assert.Nil(t, s)
	assert.True(t, fault.IsTransport(err))
}

func TestUnits_String(t *testing.T) {
	assert.Equal(t, "3.7 A", Current(3700).String())
	assert.Equal(t, "24.15 V", Voltage(2415).String())
}
