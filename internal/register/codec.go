// internal/register/codec.go
package register

import "bytes"

// DecodeString32 unpacks a STRING32 field. Each register stores two bytes
// in big-endian order (high byte first). The result is truncated at the
// first NUL byte; without one all 32 bytes are returned.
func DecodeString32(regs []uint16) string {
	if len(regs) > String32Registers {
		regs = regs[:String32Registers]
	}

	b := make([]byte, 0, 2*String32Registers)
	for _, r := range regs {
		b = append(b, byte(r>>8), byte(r))
	}

	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// EncodeString32 packs up to 32 bytes into 16 registers, NUL padded.
func EncodeString32(s string) []uint16 {
	out := make([]uint16, String32Registers)

	b := []byte(s)
	if len(b) > 2*String32Registers {
		b = b[:2*String32Registers]
	}

	for i := 0; i < 2*String32Registers; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}

// JoinUint32 combines a register pair, high word first.
func JoinUint32(hi, lo uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

// SplitUint32 returns the register pair for v, high word first.
func SplitUint32(v uint32) (hi, lo uint16) {
	return uint16(v >> 16), uint16(v)
}
