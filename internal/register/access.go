// internal/register/access.go
package register

import (
	"fmt"

	"github.com/tamzrod/caparoc/internal/transport"
)

func ReadUint16(c transport.Conn, addr uint16) (uint16, error) {
	return c.ReadRegister(addr)
}

func ReadInt16(c transport.Conn, addr uint16) (int16, error) {
	v, err := c.ReadRegister(addr)
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}

func ReadUint32(c transport.Conn, addr uint16) (uint32, error) {
	regs, err := c.ReadRegisters(addr, 2)
	if err != nil {
		return 0, err
	}
	if len(regs) != 2 {
		return 0, fmt.Errorf("register: read uint32 0x%04X: got %d registers", addr, len(regs))
	}
	return JoinUint32(regs[0], regs[1]), nil
}

func ReadString32(c transport.Conn, addr uint16) (string, error) {
	regs, err := c.ReadRegisters(addr, String32Registers)
	if err != nil {
		return "", err
	}
	if len(regs) != String32Registers {
		return "", fmt.Errorf("register: read string32 0x%04X: got %d registers", addr, len(regs))
	}
	return DecodeString32(regs), nil
}

func WriteUint16(c transport.Conn, addr, value uint16) error {
	return c.WriteRegister(addr, value)
}

func WriteUint32(c transport.Conn, addr uint16, value uint32) error {
	hi, lo := SplitUint32(value)
	return c.WriteRegisters(addr, []uint16{hi, lo})
}
