package reporter

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"

	"yacl/common/emitter"
	"yacl/common/record"

	log "github.com/sirupsen/logrus"
)

// Frames that never make a useful signature on their own.
var noiseFrames = []string{
	`^runtime\.`,
	`^panic`,
	`^yacl/capture/`,
}

// Reporter reads the crash files a previous process left behind, emits one
// error event per file and deletes the file whether or not the report
// succeeded. A record that cannot be parsed is dropped rather than retried:
// losing one diagnostic beats degrading every future launch.
type Reporter struct {
	dir     string
	emitter emitter.Emitter
	attrs   emitter.Attrs
	pline   []Stage
}

func New(dir string, e emitter.Emitter, attrs emitter.Attrs) *Reporter {
	return &Reporter{
		dir:     dir,
		emitter: e,
		attrs:   attrs,
		pline: []Stage{
			&Signature{},
			NewFrameDescent(noiseFrames),
		},
	}
}

// ReportPending runs once, before any capture point is armed, and returns
// the number of events emitted. Ordering between kinds is fixed but not
// part of the contract.
func (r *Reporter) ReportPending() int {
	reported := 0
	for _, kind := range record.Kinds {
		if r.reportOne(kind) {
			reported++
		}
	}
	return reported
}

func (r *Reporter) reportOne(kind record.Kind) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("Swallowed failure while reporting crash")
			ok = false
		}
	}()

	path := filepath.Join(r.dir, kind.FileName())

	data, err := ioutil.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).
				Error("Can't read crash file")
			os.Remove(path)
		}
		return false
	}

	if len(bytes.TrimSpace(data)) == 0 {
		// Empty slot left behind by the interceptor's eager fallback open;
		// not a crash, just clean it up.
		os.Remove(path)
		return false
	}

	// Unconditional: a corrupted file must never survive to the next start.
	defer func() {
		err := os.Remove(path)
		if err != nil {
			log.WithError(err).WithField("path", path).
				Warning("Can't remove crash file")
		}
	}()

	rec, err := record.Parse(kind, data)
	if err != nil {
		log.WithError(err).WithField("path", path).
			Error("Dropping unparsable crash file")
		return false
	}

	attrs := emitter.Merged(r.attrs, rec.Attributes())
	attrs["report.type"] = reportType(kind)

	for _, stage := range r.pline {
		if stage.Process(rec, attrs) {
			break
		}
	}

	log.WithFields(log.Fields{
		"kind": kind.String(),
		"path": path,
	}).Info("Reporting stored crash")

	r.emitter.Emit(emitter.ERROR, body(kind), attrs)
	return true
}

func reportType(kind record.Kind) string {
	return "crash." + kind.String()
}

func body(kind record.Kind) string {
	switch kind {
	case record.Native:
		return "native crash"
	case record.ManagedFault:
		return "uncaught fault"
	case record.AsyncTaskFault:
		return "async task fault"
	default:
		return "crash"
	}
}
