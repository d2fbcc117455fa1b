package cfg

import (
	"encoding/json"
	"errors"
	"os"

	log "github.com/sirupsen/logrus"
)

type Config interface {
	CrashDir() string

	NativeEnabled() bool
	FaultEnabled() bool
	TaskEnabled() bool
	WatchdogEnabled() bool

	WatchdogTimeoutMs() int
	ProbeIntervalMs() int
	BacktraceDepth() int

	LogLevel() string

	// telemetry pipeline
	RabbitServer() string
	RabbitQueue() string
}

const (
	DefaultBacktraceDepth    = 64
	DefaultWatchdogTimeoutMs = 5000
	DefaultProbeIntervalMs   = 2000
)

func FromJson(pathTo string) (Config, error) {
	file, err := os.Open(pathTo)
	if err != nil {
		log.WithError(err).Error("Get config failed")
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	jconf := defaults()
	err = decoder.Decode(jconf)
	if err != nil {
		log.WithError(err).Error("Error at cfg parsing")
		return nil, err
	}

	if len(jconf.Crash.Dir) == 0 {
		return nil, errors.New("The path to the crash directory is not set")
	}

	return jconf, nil
}

// Defaults returns a config with every capture point enabled and the policy
// default timings, rooted at the given crash directory.
func Defaults(crashDir string) Config {
	jconf := defaults()
	jconf.Crash.Dir = crashDir
	return jconf
}

func defaults() *JsonConfig {
	return &JsonConfig{
		Crash: &CrashCfg{},
		Capture: &CaptureCfg{
			Native:   true,
			Fault:    true,
			Task:     true,
			Watchdog: true,
			Depth:    DefaultBacktraceDepth,
		},
		Watchdog: &WatchdogCfg{
			TimeoutMs:  DefaultWatchdogTimeoutMs,
			IntervalMs: DefaultProbeIntervalMs,
		},
		Log:    &LogCfg{Level: "info"},
		Rabbit: &RabbitCfg{},
	}
}
