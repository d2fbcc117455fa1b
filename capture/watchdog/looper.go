package watchdog

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Looper is a serial run loop the host drives on its primary goroutine,
// mirroring a platform main looper. The watchdog posts liveness probes to
// it; application code may post work to it too.
type Looper struct {
	tasks chan func()

	mu      sync.Mutex
	running bool
	gid     uint64
}

func NewLooper() *Looper {
	return &Looper{tasks: make(chan func(), 16)}
}

// Run services posted work until ctx is cancelled. It must be called on the
// goroutine the host considers primary.
func (l *Looper) Run(ctx context.Context) {
	l.mu.Lock()
	l.running = true
	l.gid = currentGoroutineID()
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		select {
		case task := <-l.tasks:
			task()
		case <-ctx.Done():
			return
		}
	}
}

// Post schedules fn on the loop. Returns false when the loop is not
// running or its queue is saturated; it never blocks the caller.
func (l *Looper) Post(fn func()) bool {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if !running {
		return false
	}

	select {
	case l.tasks <- fn:
		return true
	default:
		return false
	}
}

// GoroutineID identifies the goroutine driving the loop, 0 before Run.
func (l *Looper) GoroutineID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gid
}

func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := strings.TrimPrefix(string(buf[:n]), "goroutine ")

	end := strings.IndexByte(header, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(header[:end], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// goroutineStack extracts one goroutine's frames from a full stack dump.
func goroutineStack(id uint64) []string {
	buf := make([]byte, 256*1024)
	n := runtime.Stack(buf, true)

	prefix := "goroutine " + strconv.FormatUint(id, 10) + " "
	for _, section := range strings.Split(string(buf[:n]), "\n\n") {
		if !strings.HasPrefix(section, prefix) {
			continue
		}
		lines := strings.Split(strings.TrimRight(section, "\n"), "\n")
		out := make([]string, 0, len(lines))
		for _, l := range lines[1:] {
			out = append(out, strings.TrimSpace(l))
		}
		return out
	}
	return nil
}
