// Package record contains the crash record model and its file codec.
package record

import (
	"bytes"
	"strconv"
)

type Kind uint

const (
	Native Kind = 1 << iota
	ManagedFault
	AsyncTaskFault
)

// MaxBacktraceDepth bounds captured backtraces; deeper stacks are truncated.
const MaxBacktraceDepth = 64

const (
	NativeFile       = "crash_native.txt"
	ManagedFaultFile = "crash_fault.txt"
	AsyncTaskFile    = "crash_task.txt"
)

// Kinds in the order the reporter walks them.
var Kinds = []Kind{Native, ManagedFault, AsyncTaskFault}

func (k Kind) FileName() string {
	switch k {
	case Native:
		return NativeFile
	case ManagedFault:
		return ManagedFaultFile
	case AsyncTaskFault:
		return AsyncTaskFile
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case Native:
		return "native"
	case ManagedFault:
		return "fault"
	case AsyncTaskFault:
		return "task"
	default:
		return "unknown"
	}
}

type CrashRecord struct {
	Kind          Kind
	Type          string
	Message       string
	ThreadName    string
	ThreadID      uint64
	TaskName      string
	TaskCancelled bool
	Stacktrace    []string
}

// Encode serializes the record into the line-oriented crash file schema.
// One token per line, newline terminated. The native schema is the one the
// signal interceptor writes by hand; Encode only covers the managed kinds.
func (r *CrashRecord) Encode() []byte {
	var buf bytes.Buffer

	writeLine(&buf, r.Type)
	writeLine(&buf, r.Message)
	writeLine(&buf, r.ThreadName)
	writeLine(&buf, strconv.FormatUint(r.ThreadID, 10))

	if r.Kind == AsyncTaskFault {
		writeLine(&buf, r.TaskName)
		writeLine(&buf, strconv.FormatBool(r.TaskCancelled))
	}

	for _, frame := range r.Stacktrace {
		writeLine(&buf, frame)
	}

	return buf.Bytes()
}

func writeLine(buf *bytes.Buffer, line string) {
	for i := 0; i < len(line); i++ {
		// A stray newline inside a field would shift every line after it.
		if line[i] == '\n' || line[i] == '\r' {
			buf.WriteByte(' ')
			continue
		}
		buf.WriteByte(line[i])
	}
	buf.WriteByte('\n')
}

func NewFault(faultType, message, threadName string, threadID uint64, stacktrace []string) *CrashRecord {
	return &CrashRecord{Kind: ManagedFault,
		Type:       faultType,
		Message:    message,
		ThreadName: threadName,
		ThreadID:   threadID,
		Stacktrace: stacktrace}
}

func NewTaskFault(faultType, message, threadName string, threadID uint64,
	taskName string, cancelled bool, stacktrace []string) *CrashRecord {
	return &CrashRecord{Kind: AsyncTaskFault,
		Type:          faultType,
		Message:       message,
		ThreadName:    threadName,
		ThreadID:      threadID,
		TaskName:      taskName,
		TaskCancelled: cancelled,
		Stacktrace:    stacktrace}
}
