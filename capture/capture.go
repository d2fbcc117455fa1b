// Package capture wires the crash and hang capture subsystem together.
//
// Startup order is a contract: stored crashes from the previous process
// lifetime are reported before any new capture point is armed, so a crash
// from the old session can never be attributed to the new one.
package capture

import (
	"syscall"
	"time"

	"yacl/capture/cfg"
	"yacl/capture/handler"
	"yacl/capture/reporter"
	"yacl/capture/sigtrap"
	"yacl/capture/storage"
	"yacl/capture/watchdog"
	"yacl/common/emitter"
	"yacl/common/session"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

// Subsystem is the root object owning every capture point. There are no
// ambient singletons: construct one, pass it around.
type Subsystem struct {
	config  cfg.Config
	emitter emitter.Emitter
	session *session.Context
	store   *storage.Storage

	Fault *handler.FaultHandler
	Task  *handler.TaskHandler

	interceptor *sigtrap.Interceptor
	wdog        *watchdog.Watchdog

	// SignalSet overrides the intercepted signals; it exists so the
	// end-to-end path can be exercised with a harmless signal.
	SignalSet []syscall.Signal

	armed bool
}

func New(conf cfg.Config, e emitter.Emitter) *Subsystem {
	store := storage.New(conf.CrashDir())

	return &Subsystem{
		config:      conf,
		emitter:     e,
		session:     session.New(),
		store:       store,
		Fault:       handler.NewFaultHandler(store),
		Task:        handler.NewTaskHandler(store),
		interceptor: sigtrap.New(conf.CrashDir(), conf.BacktraceDepth()),
	}
}

func (s *Subsystem) Session() *session.Context {
	return s.session
}

func (s *Subsystem) Storage() *storage.Storage {
	return s.store
}

// Setup reports stale crashes, then arms each capture point that is
// enabled by configuration. prevFault and prevTask are the previously
// registered links of the respective handler chains and may be nil.
// Returns the number of stale crash events reported.
func (s *Subsystem) Setup(looper *watchdog.Looper,
	prevFault handler.PrevHandler, prevTask handler.TaskPrevHandler) (int, error) {

	if s.armed {
		return 0, errors.New("capture subsystem already set up")
	}

	rep := reporter.New(s.config.CrashDir(), s.emitter, s.session.Attrs())
	reported := rep.ReportPending()

	if s.config.FaultEnabled() {
		s.Fault.Install(prevFault)
	}

	if s.config.TaskEnabled() {
		s.Task.Install(prevTask)
	}

	if s.config.NativeEnabled() {
		err := s.interceptor.Install(s.SignalSet...)
		if err != nil {
			// A dead interceptor must not take the subsystem down with it.
			log.WithError(err).Warning("Can't install signal interceptor")
		}
	}

	if s.config.WatchdogEnabled() {
		s.wdog = watchdog.New(s.emitter, looper,
			time.Duration(s.config.ProbeIntervalMs())*time.Millisecond,
			time.Duration(s.config.WatchdogTimeoutMs())*time.Millisecond,
			s.session.Attrs())
		s.wdog.Start()
	}

	s.armed = true
	log.WithField("reported", reported).Info("Capture subsystem armed")
	return reported, nil
}

// Reset fully disarms the subsystem: watchdog released, dispositions
// restored, chained handler references dropped. Safe to call repeatedly;
// a Setup after Reset starts a clean cycle with no duplicated chain links.
func (s *Subsystem) Reset() {
	if s.wdog != nil {
		s.wdog.Stop()
		s.wdog = nil
	}

	s.interceptor.Uninstall()
	s.Fault.Uninstall()
	s.Task.Uninstall()

	s.armed = false
	log.Info("Capture subsystem reset")
}

// TriggerTestCrash deliberately fires a native fault through the installed
// interceptor. It is an error, never a crash, when the interceptor is
// disabled or was never installed.
func (s *Subsystem) TriggerTestCrash() error {
	if !s.armed || !s.config.NativeEnabled() {
		return errors.New("signal interceptor is not installed")
	}
	return s.interceptor.TriggerTestCrash()
}
