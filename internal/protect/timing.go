// internal/protect/timing.go
package protect

import "time"

// Timing holds the handshake delays. The device samples lock state once per
// internal bus cycle, so every step leaves it time to observe the previous one.
type Timing struct {
	// SettleMargin is added to the device bus cycle before the first unlock.
	SettleMargin time.Duration
	// DefaultBusCycle is used when the bus cycle register is unreadable.
	DefaultBusCycle time.Duration
	// StepDelay separates consecutive writes of the handshake.
	StepDelay time.Duration
	// PostWriteSettle is waited after a successful run before returning.
	PostWriteSettle time.Duration
	// Attempts bounds the write/verify loop.
	Attempts int
}

func DefaultTiming() Timing {
	return Timing{
		SettleMargin:    50 * time.Millisecond,
		DefaultBusCycle: 100 * time.Millisecond,
		StepDelay:       50 * time.Millisecond,
		PostWriteSettle: 100 * time.Millisecond,
		Attempts:        5,
	}
}

// Clock abstracts blocking delays so tests can run without real waits.
type Clock interface {
	Sleep(d time.Duration)
	Now() time.Time
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
func (realClock) Now() time.Time        { return time.Now() }

// RealClock blocks the calling goroutine for real.
func RealClock() Clock { return realClock{} }
