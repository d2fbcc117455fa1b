package record_test

import (
	"strings"
	"testing"

	"yacl/common/record"

	"github.com/stretchr/testify/require"
)

func TestTaskFaultEncodePlacesTaskFields(t *testing.T) {
	rec := record.NewTaskFault(
		"*errors.errorString",
		"boom",
		"worker-7",
		42,
		"worker-7",
		true,
		[]string{"frame a", "frame b"},
	)

	lines := strings.Split(string(rec.Encode()), "\n")

	require.Equal(t, "worker-7", lines[4])
	require.Equal(t, "true", lines[5])
	require.Equal(t, "frame a", lines[6])
	require.Equal(t, "frame b", lines[7])
}

func TestEncodeFlattensEmbeddedNewlines(t *testing.T) {
	rec := record.NewFault("panic", "first\nsecond", "main", 1, nil)

	lines := strings.Split(strings.TrimRight(string(rec.Encode()), "\n"), "\n")

	require.Len(t, lines, 4)
	require.Equal(t, "first second", lines[1])
}

func TestParseNative(t *testing.T) {
	data := []byte("SIGSEGV\n0xdeadbeef\n0x1\n0x2\n")

	rec, err := record.Parse(record.Native, data)
	require.NoError(t, err)

	require.Equal(t, "SIGSEGV", rec.Type)
	require.Equal(t, "0xdeadbeef", rec.Message)
	require.Equal(t, []string{"0x1", "0x2"}, rec.Stacktrace)

	attrs := rec.Attributes()
	require.Equal(t, "SIGSEGV", attrs["signal"])
	require.Equal(t, "0xdeadbeef", attrs["fault_address"])
	require.Equal(t, []string{"0x1", "0x2"}, attrs["backtrace"])
}

func TestParseTaskFaultRoundTrip(t *testing.T) {
	rec := record.NewTaskFault("type", "", "worker-7", 9, "worker-7", true,
		[]string{"frame"})

	parsed, err := record.Parse(record.AsyncTaskFault, rec.Encode())
	require.NoError(t, err)

	require.Equal(t, "worker-7", parsed.TaskName)
	require.True(t, parsed.TaskCancelled)
	require.Equal(t, uint64(9), parsed.ThreadID)
	require.Equal(t, "", parsed.Message)
	require.Equal(t, []string{"frame"}, parsed.Stacktrace)
}

func TestParseFaultWithoutStacktrace(t *testing.T) {
	rec, err := record.Parse(record.ManagedFault, []byte("panic\nboom\nmain\n7\n"))
	require.NoError(t, err)

	require.Empty(t, rec.Stacktrace)
	require.Equal(t, uint64(7), rec.ThreadID)
}

func TestParseTruncatedRecords(t *testing.T) {
	cases := map[record.Kind][]byte{
		record.Native:         []byte("SIGBUS\n"),
		record.ManagedFault:   []byte("panic\nboom\n"),
		record.AsyncTaskFault: []byte("panic\nboom\nmain\n7\n"),
	}

	for kind, data := range cases {
		_, err := record.Parse(kind, data)
		require.Error(t, err, "kind %s", kind)
	}
}

func TestParseBadThreadID(t *testing.T) {
	_, err := record.Parse(record.ManagedFault, []byte("panic\nboom\nmain\nnot-a-number\nframe\n"))
	require.Error(t, err)
}
