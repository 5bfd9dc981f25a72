// internal/protect/protocol.go
package protect

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/register"
	"github.com/tamzrod/caparoc/internal/topology"
	"github.com/tamzrod/caparoc/internal/transport"
)

// DefaultDialOnlyModels lists modules whose nominal current can only be set
// on the physical rotary dials.
var DefaultDialOnlyModels = []string{"CAPAROC E2 12-24DC/2-10A"}

// State is a step of the protected write handshake.
type State string

const (
	StateIdle          State = "idle"
	StateSettling      State = "settling"
	StateUnlockChannel State = "unlock-channel"
	StateUnlockGlobal  State = "unlock-global"
	StateWriteAttempt  State = "write-attempt"
	StateVerifying     State = "verifying"
	StateRelockGlobal  State = "relock-global"
	StateRelockChannel State = "relock-channel"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Result describes a finished protected write.
type Result struct {
	OperationID string
	Attempts    int
	Elapsed     time.Duration
}

// Writer runs the lock → write → verify → unlock handshake for the
// nominal current of one channel.
//
// Not safe for concurrent use against the same device: the lock registers
// are device-global. Callers serialize.
type Writer struct {
	conn     transport.Conn
	topo     topology.Provider
	timing   Timing
	clock    Clock
	log      *slog.Logger
	dialOnly []string
	observe  func(State)
}

type Option func(*Writer)

func WithTopology(p topology.Provider) Option { return func(w *Writer) { w.topo = p } }
func WithTiming(t Timing) Option              { return func(w *Writer) { w.timing = t } }
func WithClock(c Clock) Option                { return func(w *Writer) { w.clock = c } }
func WithLogger(l *slog.Logger) Option        { return func(w *Writer) { w.log = l } }

// WithDialOnlyModels replaces the dial-only product list.
func WithDialOnlyModels(models []string) Option {
	return func(w *Writer) { w.dialOnly = append([]string(nil), models...) }
}

// WithObserver registers a hook called on every state transition.
func WithObserver(fn func(State)) Option { return func(w *Writer) { w.observe = fn } }

// New returns a Writer. The connection is borrowed, never closed.
func New(conn transport.Conn, opts ...Option) *Writer {
	w := &Writer{
		conn:     conn,
		timing:   DefaultTiming(),
		clock:    RealClock(),
		log:      slog.Default(),
		dialOnly: DefaultDialOnlyModels,
	}
	for _, o := range opts {
		o(w)
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	if w.topo == nil {
		w.topo = topology.NewLive(conn)
	}
	if w.timing.Attempts < 1 {
		w.timing.Attempts = 1
	}
	return w
}

// SetNominalCurrent writes amps to the nominal current of (module, channel)
// and verifies it by read-back.
//
// On return both lock registers have been written back to Locked, whatever
// the outcome. Errors:
//   - *fault.ValidationError: bad module/channel or dial-only module (no lock touched)
//   - *fault.ProtocolAbortError: a lock step failed on the wire
//   - *fault.VerificationError: read-back never matched
func (w *Writer) SetNominalCurrent(module, channel int, amps uint16) (res Result, err error) {
	res.OperationID = uuid.NewString()
	log := w.log.With("op", res.OperationID, "module", module, "channel", channel, "amps", amps)
	start := w.clock.Now()

	w.enter(log, StateIdle)
	defer func() {
		res.Elapsed = w.clock.Now().Sub(start)
		if err != nil {
			w.enter(log, StateFailed)
			log.Error("protected write failed", "attempts", res.Attempts, "err", err)
			return
		}
		w.enter(log, StateDone)
		log.Info("protected write verified", "attempts", res.Attempts, "elapsed", res.Elapsed)
	}()

	if err := topology.ValidateChannel(w.topo, module, channel); err != nil {
		return res, err
	}
	if err := w.checkDialOnly(log, module); err != nil {
		return res, err
	}

	w.enter(log, StateSettling)
	w.clock.Sleep(w.busCycle(log) + w.timing.SettleMargin)

	lk, err := w.acquire(log, module, channel)
	if err != nil {
		return res, err
	}
	defer func() {
		rerr := lk.release()
		if rerr != nil {
			if err == nil {
				err = &fault.ProtocolAbortError{Stage: "relock", Err: rerr}
			} else {
				// original failure wins
				log.Error("relock after failed write failed", "err", rerr)
			}
		}
		if err == nil {
			w.clock.Sleep(w.timing.PostWriteSettle)
		}
	}()

	res.Attempts, err = w.writeVerified(log, register.NominalCurrent(module, channel), amps)
	return res, err
}

// writeVerified runs the bounded write/read-back loop.
func (w *Writer) writeVerified(log *slog.Logger, addr, value uint16) (int, error) {
	verr := &fault.VerificationError{Want: value}

	for attempt := 1; attempt <= w.timing.Attempts; attempt++ {
		verr.Attempts = attempt

		w.enter(log, StateWriteAttempt)
		if err := w.conn.WriteRegister(addr, value); err != nil {
			log.Warn("nominal current write failed", "attempt", attempt, "err", err)
			verr.LastErr = err
			w.clock.Sleep(w.timing.StepDelay)
			continue
		}
		w.clock.Sleep(w.timing.StepDelay)

		w.enter(log, StateVerifying)
		got, err := w.conn.ReadRegister(addr)
		if err == nil && got == value {
			return attempt, nil
		}
		if err != nil {
			log.Warn("nominal current read-back failed", "attempt", attempt, "err", err)
			verr.LastErr = err
		} else {
			log.Warn("nominal current read-back mismatch", "attempt", attempt, "got", got)
			g := got
			verr.Got = &g
			verr.LastErr = nil
		}
		w.clock.Sleep(w.timing.StepDelay)
	}

	return verr.Attempts, verr
}

// busCycle reads the device bus cycle, falling back to the default.
func (w *Writer) busCycle(log *slog.Logger) time.Duration {
	ms, err := register.ReadUint16(w.conn, register.MaxBusCycle)
	if err != nil {
		log.Warn("bus cycle unreadable, using default", "default", w.timing.DefaultBusCycle, "err", err)
		return w.timing.DefaultBusCycle
	}
	return time.Duration(ms) * time.Millisecond
}

// checkDialOnly refuses modules whose nominal current is set on the
// hardware dials. An unreadable product name does not block the write.
func (w *Writer) checkDialOnly(log *slog.Logger, module int) error {
	name, err := register.ReadString32(w.conn, register.ModuleName(module))
	if err != nil {
		log.Warn("module product name unreadable, dial-only check skipped", "err", err)
		return nil
	}
	for _, model := range w.dialOnly {
		if model != "" && strings.Contains(name, model) {
			return &fault.ValidationError{
				Field:  "module",
				Value:  module,
				Reason: fmt.Sprintf("module is %s; nominal current must be set physically via the rotary dials", model),
			}
		}
	}
	return nil
}

func (w *Writer) enter(log *slog.Logger, s State) {
	log.Debug("protected write state", "state", string(s))
	if w.observe != nil {
		w.observe(s)
	}
}
