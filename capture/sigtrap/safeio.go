package sigtrap

import (
	"syscall"
)

const intBufferSize = 24

const hexDigits = "0123456789abcdef"

// itoaHex formats value as lowercase hex into buf and returns the length.
// Standard formatting is off limits on the crash write path, so this is
// done by hand into a caller-owned fixed buffer.
func itoaHex(value uint64, buf []byte) int {
	if value == 0 {
		buf[0] = '0'
		return 1
	}

	var tmp [intBufferSize]byte
	i := 0
	for value > 0 && i < intBufferSize {
		tmp[i] = hexDigits[value%16]
		value /= 16
		i++
	}

	j := 0
	for i > 0 {
		i--
		buf[j] = tmp[i]
		j++
	}
	return j
}

// safeWrite is best-effort: a short or failed write is accepted, never
// retried. Blocking here would hang the terminal path.
func safeWrite(fd int, data []byte) {
	if fd < 0 || len(data) == 0 {
		return
	}
	syscall.Write(fd, data)
}
