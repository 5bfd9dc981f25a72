// internal/exporter/exporter.go
package exporter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tamzrod/caparoc/internal/poller"
)

// Producer emits poll results until ctx is done. *poller.Poller implements it.
type Producer interface {
	Run(ctx context.Context, out chan<- poller.PollResult)
}

// Exporter owns the poll health state and feeds Metrics from a Producer.
type Exporter struct {
	src     Producer
	metrics *Metrics
	log     *slog.Logger

	mu     sync.Mutex
	health Health
}

func New(src Producer, m *Metrics, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	e := &Exporter{src: src, metrics: m, log: log}
	m.SetHealth(e.health)
	return e
}

// Health returns the current poll health.
func (e *Exporter) Health() Health {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.health
}

// Run starts the producer and consumes its results until ctx is done.
// seconds_in_error advances on a 1 Hz ticker while the poll is not OK.
func (e *Exporter) Run(ctx context.Context) {
	out := make(chan poller.PollResult)
	go e.src.Run(ctx, out)

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case res := <-out:
			e.handle(res)
		case <-secTicker.C:
			e.tick()
		}
	}
}

func (e *Exporter) handle(res poller.PollResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if res.Err != nil {
		e.log.Warn("poll failed", "device", res.Device, "err", res.Err)
	} else {
		e.metrics.Update(res.Snapshot, float64(res.At.UnixNano())/1e9)
		if !res.Snapshot.OK() {
			e.log.Debug("poll incomplete", "device", res.Device, "errors", len(res.Snapshot.Errors))
		}
	}

	if e.health.Observe(res.Err) {
		e.metrics.SetHealth(e.health)
		if res.Err == nil {
			e.log.Info("poll healthy", "device", res.Device)
		}
	}
}

func (e *Exporter) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.health.Tick() {
		e.metrics.SetHealth(e.health)
	}
}

// Serve exposes the metrics on /metrics until ctx is done.
func Serve(ctx context.Context, listen string, m *Metrics, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listening", "addr", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
