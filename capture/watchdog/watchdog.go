// Package watchdog monitors the primary run loop for hangs. A hang is a
// recoverable condition: it is reported through the emitter and probing
// resumes, with no persistence step (the process is alive by definition).
package watchdog

import (
	"context"
	"sync"
	"time"

	"yacl/common/emitter"

	log "github.com/sirupsen/logrus"
)

const ReportType = "anr"

type Watchdog struct {
	emitter  emitter.Emitter
	looper   *Looper
	interval time.Duration
	timeout  time.Duration
	attrs    emitter.Attrs

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(e emitter.Emitter, l *Looper, interval, timeout time.Duration, attrs emitter.Attrs) *Watchdog {
	return &Watchdog{
		emitter:  e,
		looper:   l,
		interval: interval,
		timeout:  timeout,
		attrs:    attrs,
	}
}

func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.monitor(ctx, w.done)
	log.WithFields(log.Fields{
		"interval": w.interval,
		"timeout":  w.timeout,
	}).Info("Hang watchdog started")
}

// Stop cancels the monitor and blocks until it has exited; no probe is
// posted once Stop returns.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done
	log.Info("Hang watchdog stopped")
}

// monitor cycles Idle -> Probing -> {Responded, TimedOut -> Reported} and
// back. One report never suppresses detection of a later hang.
func (w *Watchdog) monitor(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.CheckForANR() {
				w.report()
			}
		}
	}
}

// CheckForANR posts a liveness probe to the primary loop and reports true
// exactly when the probe did not execute within the timeout.
func (w *Watchdog) CheckForANR() bool {
	responded := make(chan struct{})
	posted := w.looper.Post(func() {
		close(responded)
	})
	if !posted {
		// No loop to probe; nothing can be concluded about liveness.
		log.Debug("Liveness probe not accepted by looper")
		return false
	}

	select {
	case <-responded:
		return false
	case <-time.After(w.timeout):
		return true
	}
}

func (w *Watchdog) report() {
	stack := goroutineStack(w.looper.GoroutineID())

	attrs := emitter.Merged(w.attrs, emitter.Attrs{
		"report.type":    ReportType,
		"anr.timeout_ms": w.timeout.Milliseconds(),
		"stacktrace":     stack,
	})

	log.WithField("timeout", w.timeout).Warning("Primary loop is not responding")
	w.emitter.Emit(emitter.ERROR, "application not responding", attrs)
}
