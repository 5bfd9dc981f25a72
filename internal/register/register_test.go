// internal/register/register_test.go
package register

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- address mapping ----

func TestAddress_Formula(t *testing.T) {
	assert.Equal(t, uint16(0xC050), NominalCurrent(1, 1))
	assert.Equal(t, uint16(0xC050+4+2), NominalCurrent(2, 3))
	assert.Equal(t, uint16(0xC090+15*4+3), ChannelLock(16, 4))
	assert.Equal(t, uint16(0x6010), ChannelStatus(1, 1))
	assert.Equal(t, uint16(0x6050+4), LoadCurrent(2, 1))
	assert.Equal(t, uint16(0xC010+1), ChannelControl(1, 2))
	assert.Equal(t, uint16(0x1010+0x20), ModuleName(3))
	assert.Equal(t, uint16(0x2001+15), ChannelCount(16))
}

func TestAddress_InjectiveOverTopology(t *testing.T) {
	bases := []uint16{ChannelStatusBase, LoadCurrentBase, ChannelControlBase, NominalCurrentBase, ChannelLockBase}

	for _, base := range bases {
		seen := make(map[uint16]struct{})
		for m := 1; m <= MaxModules; m++ {
			for c := 1; c <= ChannelStride; c++ {
				a := Address(base, ChannelStride, m, c)
				_, dup := seen[a]
				require.Falsef(t, dup, "base=0x%04X m=%d c=%d addr=0x%04X collides", base, m, c, a)
				seen[a] = struct{}{}
			}
		}
		assert.Len(t, seen, MaxModules*ChannelStride)
	}
}

func TestAddress_ChannelRangesDoNotOverlap(t *testing.T) {
	// last address of one range stays below the next base
	assert.Less(t, ChannelStatus(MaxModules, ChannelStride), LoadCurrentBase)
	assert.Less(t, ChannelControl(MaxModules, ChannelStride), NominalCurrentBase)
	assert.Less(t, NominalCurrent(MaxModules, ChannelStride), ChannelLockBase)
}

// ---- codecs ----

func TestDecodeString32_TruncatesAtFirstNul(t *testing.T) {
	regs := make([]uint16, String32Registers)
	regs[0] = 'A'<<8 | 'B'
	regs[1] = 'C' << 8

	assert.Equal(t, "ABC", DecodeString32(regs))
}

func TestDecodeString32_NoNulKeepsAll32Bytes(t *testing.T) {
	regs := make([]uint16, String32Registers)
	for i := range regs {
		regs[i] = 'x'<<8 | 'y'
	}

	got := DecodeString32(regs)
	assert.Len(t, got, 32)
	assert.Equal(t, strings.Repeat("xy", 16), got)
}

func TestDecodeString32_NulInLowByte(t *testing.T) {
	regs := EncodeString32("ABCD")
	regs[1] = 'C' << 8 // drop 'D'

	assert.Equal(t, "ABC", DecodeString32(regs))
}

func TestEncodeString32_InverseOfDecode(t *testing.T) {
	for _, s := range []string{"", "A", "CAPAROC E2 12-24DC/2-10A", strings.Repeat("z", 32)} {
		regs := EncodeString32(s)
		require.Len(t, regs, String32Registers)
		assert.Equal(t, s, DecodeString32(regs))
	}
}

func TestEncodeString32_TruncatesLongInput(t *testing.T) {
	long := strings.Repeat("q", 40)
	assert.Equal(t, long[:32], DecodeString32(EncodeString32(long)))
}

func TestUint32_BigEndianPair(t *testing.T) {
	hi, lo := SplitUint32(0x12345678)
	assert.Equal(t, uint16(0x1234), hi)
	assert.Equal(t, uint16(0x5678), lo)
	assert.Equal(t, uint32(0x12345678), JoinUint32(hi, lo))
}

// ---- typed access ----

type memConn struct {
	regs    map[uint16]uint16
	failAll bool
}

func (m *memConn) ReadRegister(addr uint16) (uint16, error) {
	if m.failAll {
		return 0, errors.New("down")
	}
	return m.regs[addr], nil
}

func (m *memConn) ReadRegisters(addr, count uint16) ([]uint16, error) {
	if m.failAll {
		return nil, errors.New("down")
	}
	out := make([]uint16, count)
	for i := range out {
		out[i] = m.regs[addr+uint16(i)]
	}
	return out, nil
}

func (m *memConn) WriteRegister(addr, value uint16) error {
	if m.failAll {
		return errors.New("down")
	}
	m.regs[addr] = value
	return nil
}

func (m *memConn) WriteRegisters(addr uint16, values []uint16) error {
	if m.failAll {
		return errors.New("down")
	}
	for i, v := range values {
		m.regs[addr+uint16(i)] = v
	}
	return nil
}

func TestAccess_RoundTrip(t *testing.T) {
	c := &memConn{regs: map[uint16]uint16{}}

	require.NoError(t, WriteUint16(c, 0x0100, 0xBEEF))
	v, err := ReadUint16(c, 0x0100)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), v)

	require.NoError(t, WriteUint32(c, 0x0200, 0xDEADBEEF))
	assert.Equal(t, uint16(0xDEAD), c.regs[0x0200])
	assert.Equal(t, uint16(0xBEEF), c.regs[0x0201])
	v32, err := ReadUint32(c, 0x0200)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v32)
}

func TestAccess_ReadInt16(t *testing.T) {
	c := &memConn{regs: map[uint16]uint16{InternalTemperature: 0xFFF6}}

	v, err := ReadInt16(c, InternalTemperature)
	require.NoError(t, err)
	assert.Equal(t, int16(-10), v)
}

func TestAccess_ReadString32(t *testing.T) {
	c := &memConn{regs: map[uint16]uint16{}}
	require.NoError(t, c.WriteRegisters(PowerModuleName, EncodeString32("CAPAROC PM MB")))

	s, err := ReadString32(c, PowerModuleName)
	require.NoError(t, err)
	assert.Equal(t, "CAPAROC PM MB", s)
}

func TestAccess_PropagatesErrors(t *testing.T) {
	c := &memConn{failAll: true}

	_, err := ReadUint16(c, 0)
	assert.Error(t, err)
	_, err = ReadString32(c, PowerModuleName)
	assert.Error(t, err)
	assert.Error(t, WriteUint32(c, 0, 1))
}

// ---- catalogue ----

func TestCatalogue_LoadsAndIsSorted(t *testing.T) {
	c := Catalogue()
	require.NotEmpty(t, c)

	for i := 1; i < len(c); i++ {
		assert.Less(t, c[i-1].Address, c[i].Address)
	}
}

func TestCatalogue_LookupExpandedRange(t *testing.T) {
	in, ok := Lookup(NominalCurrent(2, 3))
	require.True(t, ok)
	assert.Equal(t, "Nominal current module 2 channel 3", in.Name)
	assert.Equal(t, ReadWrite, in.Access)

	in, ok = Lookup(ModuleName(5))
	require.True(t, ok)
	assert.Equal(t, TypeString32, in.Type)
	assert.Equal(t, uint16(16), in.Registers)
}

func TestCatalogue_LookupMissing(t *testing.T) {
	_, ok := Lookup(0xFFFF)
	assert.False(t, ok)
	assert.Equal(t, "Register at address 0xFFFF not found", Describe(0xFFFF))
}

func TestCatalogue_Describe(t *testing.T) {
	d := Describe(GlobalLock)
	assert.Contains(t, d, "Address: 0xC001 (49153 dec)")
	assert.Contains(t, d, "Access: RW")
	assert.Contains(t, d, "Name: Global nominal current lock")
}

func TestCatalogue_FindIsCaseInsensitive(t *testing.T) {
	got := Find("LOAD CURRENT MODULE 1 ")
	assert.Len(t, got, ChannelStride)
}

func TestCatalogue_FilterMatchesDescription(t *testing.T) {
	got := Filter("10 mV")
	require.Len(t, got, 1)
	assert.Equal(t, InputVoltage, got[0].Address)

	assert.Equal(t, len(Catalogue()), len(Filter("")))
}

func TestParseCatalogue_RejectsUnknownType(t *testing.T) {
	_, err := parseCatalogue([]byte("registers:\n  - address: 1\n    type: FLOAT\n    access: RO\n"))
	assert.Error(t, err)
}

func TestParseCatalogue_RejectsDuplicate(t *testing.T) {
	doc := "registers:\n" +
		"  - {address: 1, type: UINT16, access: RO, name: a}\n" +
		"  - {address: 1, type: UINT16, access: RO, name: b}\n"
	_, err := parseCatalogue([]byte(doc))
	assert.Error(t, err)
}
