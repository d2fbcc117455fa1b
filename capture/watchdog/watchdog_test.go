package watchdog_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"yacl/capture/watchdog"
	"yacl/common/emitter"

	"github.com/stretchr/testify/require"
)

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitter.Attrs
}

func (f *fakeEmitter) Emit(severity emitter.Severity, body string, attrs emitter.Attrs) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, attrs)
}

func (f *fakeEmitter) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeEmitter) Last() emitter.Attrs {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[len(f.events)-1]
}

func startLooper(t *testing.T) *watchdog.Looper {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	l := watchdog.NewLooper()
	go l.Run(ctx)

	// Wait until the loop services work.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if l.Post(func() {}) {
			return l
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("looper never started")
	return nil
}

func TestCheckForANRResponsiveLoop(t *testing.T) {
	l := startLooper(t)
	w := watchdog.New(&fakeEmitter{}, l, time.Hour, 500*time.Millisecond, nil)

	require.False(t, w.CheckForANR())
}

func TestCheckForANRHungLoop(t *testing.T) {
	l := startLooper(t)
	w := watchdog.New(&fakeEmitter{}, l, time.Hour, 50*time.Millisecond, nil)

	release := make(chan struct{})
	require.True(t, l.Post(func() { <-release }))

	require.True(t, w.CheckForANR())

	// A hang is recoverable: once the loop drains, probing succeeds again.
	close(release)
	require.False(t, w.CheckForANR())
}

func TestCheckForANRWithoutRunningLoop(t *testing.T) {
	l := watchdog.NewLooper()
	w := watchdog.New(&fakeEmitter{}, l, time.Hour, 50*time.Millisecond, nil)

	require.False(t, w.CheckForANR())
}

func TestHangIsReportedAndProbingResumes(t *testing.T) {
	l := startLooper(t)
	sink := &fakeEmitter{}
	w := watchdog.New(sink, l, 20*time.Millisecond, 30*time.Millisecond,
		emitter.Attrs{"session.id": "s-1"})

	release := make(chan struct{})
	require.True(t, l.Post(func() { <-release }))

	w.Start()
	defer w.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && sink.Count() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	close(release)
	require.NotZero(t, sink.Count(), "hang was never reported")

	attrs := sink.Last()
	require.Equal(t, watchdog.ReportType, attrs["report.type"])
	require.Equal(t, "s-1", attrs["session.id"])
	require.EqualValues(t, 30, attrs["anr.timeout_ms"])
}

func TestRepeatedHangsAreEachReported(t *testing.T) {
	l := startLooper(t)
	sink := &fakeEmitter{}
	w := watchdog.New(sink, l, 20*time.Millisecond, 30*time.Millisecond, nil)

	w.Start()
	defer w.Stop()

	for hang := 0; hang < 2; hang++ {
		release := make(chan struct{})
		posted := l.Post(func() { <-release })

		want := sink.Count() + 1
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) && sink.Count() < want {
			time.Sleep(10 * time.Millisecond)
		}
		close(release)
		if posted {
			require.GreaterOrEqual(t, sink.Count(), want, "hang %d not reported", hang)
		}
	}
}

func TestStopIsABarrier(t *testing.T) {
	l := startLooper(t)
	sink := &fakeEmitter{}
	w := watchdog.New(sink, l, 10*time.Millisecond, 10*time.Millisecond, nil)

	w.Start()
	w.Stop()

	count := sink.Count()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, count, sink.Count(), "no report may fire after Stop returns")

	// Stop twice is fine.
	w.Stop()
}

func TestLooperPostAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := watchdog.NewLooper()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !l.Post(func() {}) {
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done

	require.False(t, l.Post(func() {}))
	require.NotZero(t, l.GoroutineID())
}
