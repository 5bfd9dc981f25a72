// internal/protect/lock.go
package protect

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/register"
)

// lock is the unlocked state of one channel's nominal current.
// release restores both lock registers and MUST run on every exit path
// once acquire has returned successfully.
type lock struct {
	w        *Writer
	log      *slog.Logger
	channel  uint16
	released bool
}

// acquire unlocks the channel lock, then the global lock.
// If the global unlock fails the channel is re-locked before returning.
func (w *Writer) acquire(log *slog.Logger, module, channel int) (*lock, error) {
	l := &lock{w: w, log: log, channel: register.ChannelLock(module, channel)}

	w.enter(log, StateUnlockChannel)
	if err := w.conn.WriteRegister(l.channel, register.Unlocked); err != nil {
		// nothing unlocked yet
		return nil, &fault.ProtocolAbortError{Stage: string(StateUnlockChannel), Err: err}
	}
	w.clock.Sleep(w.timing.StepDelay)

	w.enter(log, StateUnlockGlobal)
	if err := w.conn.WriteRegister(register.GlobalLock, register.Unlocked); err != nil {
		abort := &fault.ProtocolAbortError{Stage: string(StateUnlockGlobal), Err: err}
		if rerr := l.release(); rerr != nil {
			log.Error("relock after aborted unlock failed", "err", rerr)
		}
		return nil, abort
	}
	w.clock.Sleep(w.timing.StepDelay)

	return l, nil
}

// release writes Locked to the global lock, then the channel lock.
// Best-effort: each write is attempted once, failures are joined.
func (l *lock) release() error {
	if l.released {
		return nil
	}
	l.released = true

	var errs []error

	l.w.enter(l.log, StateRelockGlobal)
	if err := l.w.conn.WriteRegister(register.GlobalLock, register.Locked); err != nil {
		errs = append(errs, fmt.Errorf("relock global: %w", err))
	}
	l.w.clock.Sleep(l.w.timing.StepDelay)

	l.w.enter(l.log, StateRelockChannel)
	if err := l.w.conn.WriteRegister(l.channel, register.Locked); err != nil {
		errs = append(errs, fmt.Errorf("relock channel: %w", err))
	}

	return errors.Join(errs...)
}
