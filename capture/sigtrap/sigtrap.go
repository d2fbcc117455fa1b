// Package sigtrap intercepts fatal signals and writes the native crash file.
//
// The handler path is kept as close to async-signal-safe as the runtime
// allows: a pre-opened fallback descriptor, fixed buffers sized at install
// time, hand-rolled hex formatting, raw write syscalls, no logging and no
// locks between signal pickup and the final re-raise.
package sigtrap

import (
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"yacl/common/record"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

// FatalSignals is the default intercepted set.
var FatalSignals = []syscall.Signal{
	syscall.SIGSEGV,
	syscall.SIGABRT,
	syscall.SIGBUS,
	syscall.SIGFPE,
	syscall.SIGILL,
	syscall.SIGTRAP,
}

var signalNames = map[syscall.Signal]string{
	syscall.SIGSEGV:  "SIGSEGV",
	syscall.SIGABRT:  "SIGABRT",
	syscall.SIGBUS:   "SIGBUS",
	syscall.SIGFPE:   "SIGFPE",
	syscall.SIGILL:   "SIGILL",
	syscall.SIGTRAP:  "SIGTRAP",
	syscall.SIGWINCH: "SIGWINCH",
	syscall.SIGUSR1:  "SIGUSR1",
	syscall.SIGUSR2:  "SIGUSR2",
}

type Interceptor struct {
	path     string
	depth    int
	signals  []syscall.Signal
	names    map[syscall.Signal][]byte
	fallback int
	ch       chan os.Signal
	quit     chan struct{}
	wg       sync.WaitGroup

	// fixed buffers, sized at install time
	pcs    []uintptr
	numBuf [intBufferSize]byte

	mu        sync.Mutex
	installed bool
	restored  map[syscall.Signal]bool
}

func New(dir string, depth int) *Interceptor {
	if depth <= 0 || depth > record.MaxBacktraceDepth {
		depth = record.MaxBacktraceDepth
	}
	return &Interceptor{
		path:     filepath.Join(dir, record.NativeFile),
		depth:    depth,
		signals:  FatalSignals,
		fallback: -1,
	}
}

// Install arms the interceptor. The fallback descriptor is opened eagerly
// here so the handler never depends on a failable open.
func (i *Interceptor) Install(override ...syscall.Signal) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.installed {
		return errors.New("signal interceptor already installed")
	}

	if len(override) > 0 {
		i.signals = override
	}

	fd, err := syscall.Open(i.path, syscall.O_WRONLY|syscall.O_CREAT|syscall.O_TRUNC, 0644)
	if err != nil {
		log.WithError(err).WithField("path", i.path).
			Warning("Can't pre-open fallback crash file")
		fd = -1
	}
	i.fallback = fd

	i.pcs = make([]uintptr, i.depth)
	i.names = make(map[syscall.Signal][]byte, len(i.signals))
	i.restored = make(map[syscall.Signal]bool, len(i.signals))
	for _, sig := range i.signals {
		name := signalNames[sig]
		if name == "" {
			name = "UNKNOWN"
		}
		i.names[sig] = []byte(name)
	}

	i.ch = make(chan os.Signal, len(i.signals))
	i.quit = make(chan struct{})
	for _, sig := range i.signals {
		signal.Notify(i.ch, sig)
	}

	i.wg.Add(1)
	go i.loop()

	i.installed = true
	log.WithField("signals", len(i.signals)).Info("Signal interceptor installed")
	return nil
}

func (i *Interceptor) loop() {
	defer i.wg.Done()
	for {
		select {
		case sig := <-i.ch:
			s, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			i.handle(s)
		case <-i.quit:
			return
		}
	}
}

// handle is the terminal path. Every step is best-effort; any failure is
// skipped and execution falls through to disposition restore and re-raise.
func (i *Interceptor) handle(sig syscall.Signal) {
	fd, err := syscall.Open(i.path, syscall.O_WRONLY|syscall.O_CREAT|syscall.O_TRUNC, 0644)
	fresh := err == nil
	if !fresh {
		fd = i.fallback
	}

	if fd >= 0 {
		name := i.names[sig]
		if name == nil {
			name = unknownSignal
		}
		safeWrite(fd, name)
		safeWrite(fd, newline)

		n := runtime.Callers(3, i.pcs)

		// No siginfo address is available here; the nearest program
		// counter stands in for the fault address.
		var addr uint64
		if n > 0 {
			addr = uint64(i.pcs[0])
		}
		i.writeHexLine(fd, addr)

		for f := 0; f < n; f++ {
			i.writeHexLine(fd, uint64(i.pcs[f]))
		}

		if fresh {
			syscall.Close(fd)
		}
	}

	i.restoreOne(sig)
	syscall.Kill(syscall.Getpid(), sig)
}

func (i *Interceptor) writeHexLine(fd int, value uint64) {
	safeWrite(fd, hexPrefix)
	n := itoaHex(value, i.numBuf[:])
	safeWrite(fd, i.numBuf[:n])
	safeWrite(fd, newline)
}

var (
	newline       = []byte("\n")
	hexPrefix     = []byte("0x")
	unknownSignal = []byte("UNKNOWN")
)

// restoreOne puts a signal's disposition back exactly once per install
// cycle, whether it fires from the handler or from Uninstall.
func (i *Interceptor) restoreOne(sig syscall.Signal) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.restored[sig] {
		return
	}
	i.restored[sig] = true
	signal.Reset(sig)
}

// Uninstall restores every remaining signal disposition, stops the handler
// goroutine and releases the fallback descriptor.
func (i *Interceptor) Uninstall() {
	i.mu.Lock()
	if !i.installed {
		i.mu.Unlock()
		return
	}
	signal.Stop(i.ch)
	close(i.quit)
	i.installed = false
	i.mu.Unlock()

	i.wg.Wait()

	for _, sig := range i.signals {
		i.restoreOne(sig)
	}

	i.mu.Lock()
	if i.fallback >= 0 {
		syscall.Close(i.fallback)
		i.fallback = -1
	}
	i.mu.Unlock()

	log.Info("Signal interceptor uninstalled")
}

// Restored reports whether a signal's saved disposition has been put back
// in the current install cycle.
func (i *Interceptor) Restored(sig syscall.Signal) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.restored[sig]
}

// Trigger delivers sig to the current process through the installed
// interceptor. It is a plain error, never a crash, when the interceptor is
// not armed or does not cover sig.
func (i *Interceptor) Trigger(sig syscall.Signal) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.installed {
		return errors.New("signal interceptor is not installed")
	}

	covered := false
	for _, s := range i.signals {
		if s == sig {
			covered = true
			break
		}
	}
	if !covered {
		return errors.Errorf("signal %d is not intercepted", sig)
	}

	return syscall.Kill(syscall.Getpid(), sig)
}

// TriggerTestCrash fires the first signal of the installed set. Used only
// to validate the end-to-end capture path.
func (i *Interceptor) TriggerTestCrash() error {
	i.mu.Lock()
	if !i.installed || len(i.signals) == 0 {
		i.mu.Unlock()
		return errors.New("signal interceptor is not installed")
	}
	sig := i.signals[0]
	i.mu.Unlock()

	return i.Trigger(sig)
}
