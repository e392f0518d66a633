package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/thatsimonsguy/light-controller/internal/datadog"
)

// Resetter is the liveness side of the watchdog. Periodic tasks call ResetTimeout on every
// iteration they survive.
type Resetter interface {
	ResetTimeout()
}

// Watchdog fires OnExpire when no ResetTimeout arrives within Timeout. It fires once per
// starvation episode and rearms on the next reset.
type Watchdog struct {
	Timeout  time.Duration
	OnExpire func(starved time.Duration)

	lastKick atomic.Int64
	expired  atomic.Bool
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(timeout time.Duration, onExpire func(starved time.Duration)) *Watchdog {
	w := &Watchdog{
		Timeout:  timeout,
		OnExpire: onExpire,
		now:      time.Now,
	}
	w.lastKick.Store(w.now().UnixNano())
	return w
}

func (w *Watchdog) ResetTimeout() {
	w.lastKick.Store(w.now().UnixNano())
	if w.expired.CompareAndSwap(true, false) {
		log.Info().Msg("Watchdog liveness restored")
	}
}

// Since reports how long ago the last reset arrived.
func (w *Watchdog) Since() time.Duration {
	return w.now().Sub(time.Unix(0, w.lastKick.Load()))
}

// Check evaluates the timeout once. It returns true when this call fired OnExpire.
func (w *Watchdog) Check() bool {
	since := w.Since()
	datadog.Gauge("watchdog.kick_age_ms", float64(since.Milliseconds()))

	if since < w.Timeout {
		return false
	}
	if !w.expired.CompareAndSwap(false, true) {
		return false
	}

	log.Error().
		Dur("starved", since).
		Dur("timeout", w.Timeout).
		Msg("Watchdog timeout: light task stopped resetting")
	datadog.Incr("watchdog.expired")
	if w.OnExpire != nil {
		w.OnExpire(since)
	}
	return true
}

// Start launches the monitor goroutine. Calling Start twice is a no-op.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.ResetTimeout()

	interval := w.Timeout / 4
	if interval <= 0 {
		interval = time.Millisecond
	}

	go func(done chan struct{}) {
		defer close(done)
		log.Info().Dur("timeout", w.Timeout).Msg("Starting watchdog")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Check()
			}
		}
	}(w.done)
}

func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info().Msg("Watchdog stopped")
}
