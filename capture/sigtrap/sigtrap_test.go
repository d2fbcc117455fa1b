package sigtrap_test

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"yacl/capture/sigtrap"
	"yacl/common/record"

	"github.com/stretchr/testify/require"
)

// SIGWINCH is harmless under the default disposition, so the full
// pickup -> write -> restore -> re-raise path can run inside the test
// process without killing it.
const testSignal = syscall.SIGWINCH

// waitHandled blocks until the interceptor has processed sig. Restoration
// happens after the crash file write, so the file is complete once this
// returns.
func waitHandled(t *testing.T, i *sigtrap.Interceptor, sig syscall.Signal) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if i.Restored(sig) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("signal %d was never handled", sig)
}

func TestTriggerWritesNativeCrashFile(t *testing.T) {
	dir := t.TempDir()
	i := sigtrap.New(dir, 16)

	require.NoError(t, i.Install(testSignal))
	defer i.Uninstall()

	require.NoError(t, i.Trigger(testSignal))
	waitHandled(t, i, testSignal)

	data, err := ioutil.ReadFile(filepath.Join(dir, record.NativeFile))
	require.NoError(t, err)
	content := string(data)
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")

	require.Equal(t, "SIGWINCH", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "0x"), "fault address line: %q", lines[1])
	for _, frame := range lines[2:] {
		require.True(t, strings.HasPrefix(frame, "0x"), "backtrace line: %q", frame)
	}
	// Bounded unwinding: address line plus at most depth frames.
	require.LessOrEqual(t, len(lines), 2+16)

	rec, err := record.Parse(record.Native, []byte(content))
	require.NoError(t, err)
	require.Equal(t, "SIGWINCH", rec.Type)
}

func TestDispositionRestoredOncePerCycle(t *testing.T) {
	dir := t.TempDir()
	i := sigtrap.New(dir, 8)

	require.NoError(t, i.Install(testSignal))
	require.False(t, i.Restored(testSignal))

	require.NoError(t, i.Trigger(testSignal))
	waitHandled(t, i, testSignal)

	// Teardown after a handled signal must not restore again, and a
	// repeated teardown must be a no-op.
	i.Uninstall()
	i.Uninstall()
}

func TestUninstallRestoresUnfiredSignals(t *testing.T) {
	dir := t.TempDir()
	i := sigtrap.New(dir, 8)

	require.NoError(t, i.Install(testSignal))
	require.False(t, i.Restored(testSignal))

	i.Uninstall()
	require.True(t, i.Restored(testSignal))
}

func TestTriggerWithoutInstall(t *testing.T) {
	i := sigtrap.New(t.TempDir(), 8)

	require.Error(t, i.Trigger(testSignal))
	require.Error(t, i.TriggerTestCrash())
}

func TestTriggerUncoveredSignal(t *testing.T) {
	i := sigtrap.New(t.TempDir(), 8)
	require.NoError(t, i.Install(testSignal))
	defer i.Uninstall()

	require.Error(t, i.Trigger(syscall.SIGUSR2))
}

func TestReinstallAfterUninstall(t *testing.T) {
	dir := t.TempDir()
	i := sigtrap.New(dir, 8)

	require.NoError(t, i.Install(testSignal))
	i.Uninstall()

	require.NoError(t, i.Install(testSignal))
	defer i.Uninstall()

	require.False(t, i.Restored(testSignal), "new cycle starts unrestored")
	require.NoError(t, i.TriggerTestCrash())
	waitHandled(t, i, testSignal)

	data, err := ioutil.ReadFile(filepath.Join(dir, record.NativeFile))
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestDoubleInstall(t *testing.T) {
	i := sigtrap.New(t.TempDir(), 8)
	require.NoError(t, i.Install(testSignal))
	defer i.Uninstall()

	require.Error(t, i.Install(testSignal))
}
