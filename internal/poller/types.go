// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/caparoc/internal/device"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	Device string
	At     time.Time

	// Snapshot is nil when Err is set.
	Snapshot *device.Snapshot
	Err      error // non-nil means the poll cycle failed
}
