package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LifecycleManager owns the daemon's PID file. The file is how `rudder stop`
// and `rudder status` find a running daemon, so it is written before any
// network surface comes up and removed as the very last shutdown step.
type LifecycleManager struct {
	daemon  *Daemon
	pidFile string
}

// NewLifecycleManager creates a lifecycle manager for the daemon. The PID
// file lives in the daemon's data directory.
func NewLifecycleManager(d *Daemon) *LifecycleManager {
	return &LifecycleManager{
		daemon:  d,
		pidFile: filepath.Join(d.config.DataDir, "rudder.pid"),
	}
}

// Start claims the PID file. A PID file whose process is gone is treated as
// stale and overwritten; a live one means another daemon owns this data dir.
func (l *LifecycleManager) Start() error {
	if err := os.MkdirAll(l.daemon.config.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if pid, err := l.GetPID(); err == nil && pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("daemon already running with PID %d", pid)
	}

	if err := os.WriteFile(l.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	l.daemon.logger.Info().
		Str("pid_file", l.pidFile).
		Int("pid", os.Getpid()).
		Msg("Lifecycle manager started")

	return nil
}

// Stop releases the PID file. A missing file is not an error; a crashed
// previous run may never have cleaned up.
func (l *LifecycleManager) Stop() error {
	if err := os.Remove(l.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}

	l.daemon.logger.Info().Msg("Lifecycle manager stopped")
	return nil
}

// GetPID reads the PID recorded in the PID file.
func (l *LifecycleManager) GetPID() (int, error) {
	data, err := os.ReadFile(l.pidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}

	return pid, nil
}

// IsRunning reports whether the process named by the PID file is alive.
func (l *LifecycleManager) IsRunning() bool {
	pid, err := l.GetPID()
	if err != nil {
		return false
	}
	return processAlive(pid)
}

// GetUptime returns how long the daemon has been running.
func (l *LifecycleManager) GetUptime() time.Duration {
	return l.daemon.Status().Uptime
}

// processAlive probes a PID with signal 0. os.FindProcess always succeeds on
// Unix, so only the signal result says anything.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
