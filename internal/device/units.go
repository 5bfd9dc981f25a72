// internal/device/units.go
package device

import "fmt"

// Current is a channel load current in mA (device resolution 100 mA).
type Current uint16

func (c Current) Amperes() float64 { return float64(c) / 1000 }

func (c Current) String() string { return fmt.Sprintf("%.1f A", c.Amperes()) }

// Voltage is the input voltage in 10 mV units.
type Voltage uint16

func (v Voltage) Volts() float64 { return float64(v) / 100 }

func (v Voltage) String() string { return fmt.Sprintf("%.2f V", v.Volts()) }
