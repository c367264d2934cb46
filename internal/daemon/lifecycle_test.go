package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecyclePIDFilePath(t *testing.T) {
	daemon, log := createTestDaemon(t)
	defer log.Close()
	defer daemon.closeCoreModules()

	lm := NewLifecycleManager(daemon)
	assert.Equal(t, filepath.Join(daemon.config.DataDir, "rudder.pid"), lm.pidFile)
}

func TestLifecycleStartWritesOwnPID(t *testing.T) {
	daemon, log := createTestDaemon(t)
	defer log.Close()
	defer daemon.closeCoreModules()

	lm := NewLifecycleManager(daemon)
	require.NoError(t, lm.Start())
	defer lm.Stop()

	pid, err := lm.GetPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	// This process holds the file, so the daemon reads as running.
	assert.True(t, lm.IsRunning())
}

func TestLifecycleStopRemovesPIDFile(t *testing.T) {
	daemon, log := createTestDaemon(t)
	defer log.Close()
	defer daemon.closeCoreModules()

	lm := NewLifecycleManager(daemon)
	require.NoError(t, lm.Start())
	require.NoError(t, lm.Stop())

	_, err := os.Stat(lm.pidFile)
	assert.True(t, os.IsNotExist(err))

	// Stopping again is fine; nothing left to remove.
	assert.NoError(t, lm.Stop())
}

func TestLifecycleStartOverwritesStalePIDFile(t *testing.T) {
	daemon, log := createTestDaemon(t)
	defer log.Close()
	defer daemon.closeCoreModules()

	lm := NewLifecycleManager(daemon)

	// A PID that cannot belong to a live process.
	stale := strconv.Itoa(1 << 30)
	require.NoError(t, os.WriteFile(lm.pidFile, []byte(stale), 0644))

	require.NoError(t, lm.Start())
	defer lm.Stop()

	pid, err := lm.GetPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestLifecycleGetPIDRejectsGarbage(t *testing.T) {
	daemon, log := createTestDaemon(t)
	defer log.Close()
	defer daemon.closeCoreModules()

	lm := NewLifecycleManager(daemon)
	require.NoError(t, os.WriteFile(lm.pidFile, []byte("not-a-pid"), 0644))

	_, err := lm.GetPID()
	assert.ErrorContains(t, err, "invalid PID file")
	assert.False(t, lm.IsRunning())
}
