package handler

import (
	"runtime"
	"strconv"
	"strings"

	"yacl/common/record"
)

// goroutineID parses the numeric id out of the runtime.Stack header line
// ("goroutine 123 [running]:"). Goroutines carry no name, so this is the
// closest analogue to a thread identifier.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := string(buf[:n])

	header = strings.TrimPrefix(header, "goroutine ")
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

// stackLines captures the current goroutine's stack, drops the header and
// the top skip frames (two lines each), and truncates at the depth cap.
func stackLines(skip int) []string {
	buf := make([]byte, 16*1024)
	n := runtime.Stack(buf, false)

	lines := strings.Split(strings.TrimRight(string(buf[:n]), "\n"), "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if drop := skip * 2; drop < len(lines) {
		lines = lines[drop:]
	} else {
		lines = nil
	}

	if len(lines) > record.MaxBacktraceDepth {
		lines = lines[:record.MaxBacktraceDepth]
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimSpace(l)
	}
	return out
}
