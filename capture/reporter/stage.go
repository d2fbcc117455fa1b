// Package reporter recovers crash records left by a previous process
// lifetime and delivers them to the telemetry pipeline.
package reporter

import (
	"regexp"

	"yacl/common/emitter"
	"yacl/common/record"

	log "github.com/sirupsen/logrus"
)

// Stage enriches the attributes of a parsed crash record.
// If Process returns true the chain stops.
type Stage interface {
	Process(rec *record.CrashRecord, attrs emitter.Attrs) bool
}

// Signature fills a default crash signature from the top frame.
type Signature struct{}

func (s *Signature) Process(rec *record.CrashRecord, attrs emitter.Attrs) bool {
	if len(rec.Stacktrace) > 0 {
		attrs["signature"] = rec.Stacktrace[0]
	} else {
		attrs["signature"] = rec.Type
	}

	return false
}

// FrameDescent walks the stacktrace for the first frame not matched by any
// of the noise expressions and promotes it to the signature.
type FrameDescent struct {
	Regexps []*regexp.Regexp
}

func (f *FrameDescent) Process(rec *record.CrashRecord, attrs emitter.Attrs) bool {
	if len(f.Regexps) == 0 {
		// to next stage
		return false
	}

	if len(rec.Stacktrace) == 0 {
		// go to next stage
		return false
	}

	for _, frame := range rec.Stacktrace {
		isNoise := false
		for _, rx := range f.Regexps {
			if rx.MatchString(frame) {
				isNoise = true
				break
			}
		}
		if !isNoise {
			attrs["signature"] = frame
			return true
		}
	}

	return true
}

func NewFrameDescent(regs []string) *FrameDescent {
	var rxSlice []*regexp.Regexp
	for _, reg := range regs {
		rx, err := regexp.Compile(reg)
		log.WithField("regexp", reg).
			Debug("FrameDescent stage: compile regexp")
		if err == nil {
			rxSlice = append(rxSlice, rx)
		} else {
			log.WithError(err).
				Error("Can't compile regular expression")
		}
	}

	return &FrameDescent{
		Regexps: rxSlice,
	}
}
