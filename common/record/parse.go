package record

import (
	"strconv"
	"strings"

	"yacl/common/utils"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

// Parse reconstructs a CrashRecord from the raw content of a crash file.
// The schema is positional, so a truncated header is an error; a missing
// stacktrace is not (a crash before the first frame write leaves none).
func Parse(kind Kind, data []byte) (*CrashRecord, error) {
	lines := splitLines(data)

	switch kind {
	case Native:
		return parseNative(lines)
	case ManagedFault:
		return parseFault(lines, false)
	case AsyncTaskFault:
		return parseFault(lines, true)
	default:
		return nil, errors.Errorf("unknown crash kind %d", kind)
	}
}

func parseNative(lines []string) (*CrashRecord, error) {
	if len(lines) < 2 {
		return nil, errors.New("truncated native crash record")
	}

	return &CrashRecord{Kind: Native,
		Type:       lines[0],
		Message:    lines[1],
		Stacktrace: lines[2:]}, nil
}

func parseFault(lines []string, task bool) (*CrashRecord, error) {
	header := 4
	if task {
		header = 6
	}
	if len(lines) < header {
		return nil, errors.New("truncated crash record")
	}

	tid, err := strconv.ParseUint(lines[3], 10, 64)
	if err != nil {
		log.WithField("line", lines[3]).Debug("Bad thread id line")
		return nil, errors.Errorf("bad thread id %q", lines[3])
	}

	rec := &CrashRecord{Kind: ManagedFault,
		Type:       lines[0],
		Message:    lines[1],
		ThreadName: lines[2],
		ThreadID:   tid,
		Stacktrace: lines[header:]}

	if task {
		cancelled, err := strconv.ParseBool(lines[5])
		if err != nil {
			return nil, errors.Errorf("bad cancellation flag %q", lines[5])
		}
		rec.Kind = AsyncTaskFault
		rec.TaskName = lines[4]
		rec.TaskCancelled = cancelled
	}

	return rec, nil
}

func splitLines(data []byte) []string {
	raw := strings.Split(string(data), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, utils.Trim(l))
	}
	// Drop the empty tail left by the terminating newline.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Attributes flattens a record into emission attributes. Native records use
// the signal vocabulary, managed records the fault vocabulary.
func (r *CrashRecord) Attributes() map[string]interface{} {
	attrs := make(map[string]interface{})

	if r.Kind == Native {
		attrs["signal"] = r.Type
		attrs["fault_address"] = r.Message
		attrs["backtrace"] = r.Stacktrace
		return attrs
	}

	attrs["fault.type"] = r.Type
	attrs["fault.message"] = r.Message
	attrs["thread.name"] = r.ThreadName
	attrs["thread.id"] = r.ThreadID
	attrs["stacktrace"] = r.Stacktrace

	if r.Kind == AsyncTaskFault {
		attrs["task.name"] = r.TaskName
		attrs["task.cancelled"] = r.TaskCancelled
	}

	return attrs
}
