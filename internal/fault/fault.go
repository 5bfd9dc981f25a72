// internal/fault/fault.go
package fault

import (
	"errors"
	"fmt"
)

// Stable error codes. These are exported to metrics and MUST NOT change.
const (
	CodeNone         uint16 = 0
	CodeGeneric      uint16 = 1
	CodeTransport    uint16 = 1
	CodeValidation   uint16 = 2
	CodeVerification uint16 = 3
	CodeProtocol     uint16 = 4
)

// TransportError means a single register read or write failed on the wire.
type TransportError struct {
	Op   string // "read" | "write"
	Addr uint16
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s 0x%04X: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Code() uint16 { return CodeTransport }

// ValidationError is raised before any device mutation when an argument
// is outside the currently valid range (or otherwise ineligible).
type ValidationError struct {
	Field  string
	Value  int
	Min    int
	Max    int
	Reason string // overrides the range message when set
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
	}
	if e.Max < e.Min {
		return fmt.Sprintf("invalid %s %d: no valid values (device reports %d)", e.Field, e.Value, e.Max)
	}
	return fmt.Sprintf("invalid %s %d: expected value between %d and %d", e.Field, e.Value, e.Min, e.Max)
}

func (e *ValidationError) Code() uint16 { return CodeValidation }

// VerificationError means the transport accepted the write but the
// read-back never matched within the retry bound.
type VerificationError struct {
	Attempts int
	Want     uint16
	Got      *uint16 // last read-back value, nil if never read
	LastErr  error
}

func (e *VerificationError) Error() string {
	got := "none"
	if e.Got != nil {
		got = fmt.Sprintf("%d", *e.Got)
	}
	if e.LastErr != nil {
		return fmt.Sprintf("verification failed after %d attempts: want=%d got=%s: %v", e.Attempts, e.Want, got, e.LastErr)
	}
	return fmt.Sprintf("verification failed after %d attempts: want=%d got=%s", e.Attempts, e.Want, got)
}

func (e *VerificationError) Unwrap() error { return e.LastErr }

func (e *VerificationError) Code() uint16 { return CodeVerification }

// ProtocolAbortError means a lock handshake step failed mid-protocol.
type ProtocolAbortError struct {
	Stage string
	Err   error
}

func (e *ProtocolAbortError) Error() string {
	return fmt.Sprintf("protocol aborted at %s: %v", e.Stage, e.Err)
}

func (e *ProtocolAbortError) Unwrap() error { return e.Err }

func (e *ProtocolAbortError) Code() uint16 { return CodeProtocol }

// Code extracts a best-effort uint16 code from an error without assuming
// concrete types. Errors that do not expose a code map to CodeGeneric.
func Code(err error) uint16 {
	if err == nil {
		return CodeNone
	}

	type coder interface{ Code() uint16 }

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeGeneric
}

func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsVerification(err error) bool {
	var e *VerificationError
	return errors.As(err, &e)
}

func IsProtocolAbort(err error) bool {
	var e *ProtocolAbortError
	return errors.As(err, &e)
}
