// internal/transport/conn.go
package transport

// Conn is the single-register access contract consumed by every package in
// this module. Implementations perform one blocking operation at a time.
// All addresses and values are 16-bit; block values are in register order.
//
// Failures SHOULD be reported as *fault.TransportError.
type Conn interface {
	ReadRegister(addr uint16) (uint16, error)
	ReadRegisters(addr, count uint16) ([]uint16, error)
	WriteRegister(addr, value uint16) error
	WriteRegisters(addr uint16, values []uint16) error
}
