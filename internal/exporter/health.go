// internal/exporter/health.go
package exporter

import "github.com/tamzrod/caparoc/internal/fault"

// Poll health codes.
const (
	HealthUnknown uint16 = 0
	HealthOK      uint16 = 1
	HealthError   uint16 = 2
)

// maxSecondsInError saturates the 16-bit counter.
const maxSecondsInError = 65535

// Health is the poll-level state exported next to the device values.
// It contains no logic beyond its own transitions and no memory of the
// past beyond the current state.
type Health struct {
	State          uint16
	LastErrorCode  uint16
	SecondsInError uint16
}

// Observe folds one poll outcome into h and reports whether it changed.
func (h *Health) Observe(err error) bool {
	prev := *h

	if err == nil {
		// Recovery / OK
		h.State = HealthOK
		h.LastErrorCode = 0
		h.SecondsInError = 0
	} else {
		h.State = HealthError
		h.LastErrorCode = fault.Code(err)
		// seconds_in_error increments on Tick only
	}

	return *h != prev
}

// Tick advances SecondsInError while not OK. Called at 1 Hz.
func (h *Health) Tick() bool {
	if h.State == HealthOK || h.SecondsInError >= maxSecondsInError {
		return false
	}
	h.SecondsInError++
	return true
}
