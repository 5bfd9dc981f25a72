// internal/poller/poller.go
package poller

import (
	"errors"
	"time"

	"github.com/tamzrod/caparoc/internal/device"
)

// Source produces one full device read.
// *device.Device implements it.
type Source interface {
	Snapshot() (*device.Snapshot, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Device   string
	Interval time.Duration
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg Config
	src Source
	now func() time.Time
}

// New creates a poller with immutable config.
func New(cfg Config, src Source) (*Poller, error) {
	if cfg.Device == "" {
		return nil, errors.New("poller: device name required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if src == nil {
		return nil, errors.New("poller: source required")
	}
	return &Poller{cfg: cfg, src: src, now: time.Now}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: a fatal snapshot error aborts the cycle. Per-item read
// failures stay inside the snapshot.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		Device: p.cfg.Device,
		At:     p.now(),
	}

	snap, err := p.src.Snapshot()
	if err != nil {
		res.Err = err
		return res
	}

	// Commit only if the walk succeeded
	res.Snapshot = snap
	return res
}
