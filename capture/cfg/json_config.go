package cfg

type CrashCfg struct {
	Dir string `json:"dir"`
}

type CaptureCfg struct {
	Native   bool `json:"native"`
	Fault    bool `json:"fault"`
	Task     bool `json:"task"`
	Watchdog bool `json:"watchdog"`
	Depth    int  `json:"backtrace_depth"`
}

type WatchdogCfg struct {
	TimeoutMs  int `json:"timeout_ms"`
	IntervalMs int `json:"probe_interval_ms"`
}

type LogCfg struct {
	Level string `json:"level"`
}

type RabbitCfg struct {
	Server string `json:"server"`
	Queue  string `json:"queue"`
}

type JsonConfig struct {
	Crash    *CrashCfg    `json:"crash"`
	Capture  *CaptureCfg  `json:"capture"`
	Watchdog *WatchdogCfg `json:"watchdog"`
	Log      *LogCfg      `json:"log"`
	Rabbit   *RabbitCfg   `json:"rabbit_cfg"`
}

func (cfg *JsonConfig) CrashDir() string {
	return cfg.Crash.Dir
}

func (cfg *JsonConfig) NativeEnabled() bool {
	return cfg.Capture.Native
}

func (cfg *JsonConfig) FaultEnabled() bool {
	return cfg.Capture.Fault
}

func (cfg *JsonConfig) TaskEnabled() bool {
	return cfg.Capture.Task
}

func (cfg *JsonConfig) WatchdogEnabled() bool {
	return cfg.Capture.Watchdog
}

func (cfg *JsonConfig) WatchdogTimeoutMs() int {
	return cfg.Watchdog.TimeoutMs
}

func (cfg *JsonConfig) ProbeIntervalMs() int {
	return cfg.Watchdog.IntervalMs
}

func (cfg *JsonConfig) BacktraceDepth() int {
	return cfg.Capture.Depth
}

func (cfg *JsonConfig) LogLevel() string {
	return cfg.Log.Level
}

func (cfg *JsonConfig) RabbitServer() string {
	return cfg.Rabbit.Server
}

func (cfg *JsonConfig) RabbitQueue() string {
	return cfg.Rabbit.Queue
}
