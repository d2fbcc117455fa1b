package emitter

import (
	log "github.com/sirupsen/logrus"
)

// LogEmitter delivers events to the local log. Used by the cli and as the
// default sink when no pipeline is configured.
type LogEmitter struct{}

func (e *LogEmitter) Emit(severity Severity, body string, attrs Attrs) {
	entry := log.WithField("severity", string(severity))
	for k, v := range attrs {
		entry = entry.WithField(k, v)
	}

	switch severity {
	case ERROR:
		entry.Error(body)
	default:
		entry.Info(body)
	}
}
